package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidSeed is returned when the crawl seed is not an absolute http(s) URL
var ErrInvalidSeed = errors.New("invalid seed URL")

// IsArticleHref reports whether a raw href points at an article page:
// it must start with the article prefix and carry no namespace separator
// anywhere (Talk:, Category:, Special: ...).
func IsArticleHref(href, prefix, separator string) bool {
	if !strings.HasPrefix(href, prefix) {
		return false
	}
	return !strings.Contains(href, separator)
}

// ParseBaseURL parses the site origin article links are resolved against
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", raw)
	}
	return u, nil
}

// ValidateSeed checks that the seed is an absolute http(s) URL
func ValidateSeed(seed string) error {
	if strings.TrimSpace(seed) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSeed)
	}

	u, err := url.Parse(seed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidSeed, seed)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidSeed, seed)
	}

	return nil
}
