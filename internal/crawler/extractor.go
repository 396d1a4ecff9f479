package crawler

import (
	"bytes"
	"net/url"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// LinkExtractor returns the set of article links found in a document
type LinkExtractor interface {
	ExtractLinks(content []byte) []string
}

// ArticleExtractor extracts same-site article links following the
// site's path convention
type ArticleExtractor struct {
	base      *url.URL
	prefix    string
	separator string
}

// NewArticleExtractor creates an extractor resolving links against baseURL
func NewArticleExtractor(baseURL, prefix, separator string) (*ArticleExtractor, error) {
	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	return &ArticleExtractor{
		base:      base,
		prefix:    prefix,
		separator: separator,
	}, nil
}

// ExtractLinks returns the sorted, deduplicated absolute article URLs linked
// from content. Content that cannot be parsed yields no links.
func (e *ArticleExtractor) ExtractLinks(content []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		logrus.Debugf("Failed to parse document: %v", err)
		return []string{}
	}

	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !IsArticleHref(href, e.prefix, e.separator) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		link := e.base.ResolveReference(ref).String()
		if seen[link] {
			return
		}

		seen[link] = true
		links = append(links, link)
	})

	sort.Strings(links)
	return links
}
