package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/memory"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

// DefaultDelay is the pause imposed after every expanded page
const DefaultDelay = time.Second

// MetricsCallback receives unit deltas as crawl events happen
type MetricsCallback func(nodesCrawled, nodesDiscovered, edgesRecorded, pagesFetched, pagesFailed int)

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Crawler performs bounded-depth breadth-first crawls of an article graph
type Crawler struct {
	fetcher           Fetcher
	extractor         LinkExtractor
	delay             time.Duration
	wait              WaitFunc
	metricsCallback   MetricsCallback
	fetchTimeCallback func(time.Duration)
	skipCallback      func()
}

// Option configures a Crawler
type Option func(*Crawler)

// WithDelay sets the pause imposed after every expanded page
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithWaitFunc replaces the function used to impose the delay
func WithWaitFunc(wait WaitFunc) Option {
	return func(c *Crawler) {
		c.wait = wait
	}
}

// WithMetricsCallback registers a callback for crawl counters
func WithMetricsCallback(cb MetricsCallback) Option {
	return func(c *Crawler) {
		c.metricsCallback = cb
	}
}

// WithFetchTimeCallback registers a callback receiving each fetch duration
func WithFetchTimeCallback(cb func(time.Duration)) Option {
	return func(c *Crawler) {
		c.fetchTimeCallback = cb
	}
}

// WithSkipCallback registers a callback invoked for every discarded queue entry
func WithSkipCallback(cb func()) Option {
	return func(c *Crawler) {
		c.skipCallback = cb
	}
}

// NewCrawler creates a new crawler instance
func NewCrawler(fetcher Fetcher, extractor LinkExtractor, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:   fetcher,
		extractor: extractor,
		delay:     DefaultDelay,
		wait:      sleep,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl explores the article graph breadth-first from seed, expanding pages
// up to maxDepth hops away. Links found on a page at maxDepth are still
// recorded as edges; their targets are never fetched.
//
// Per-page fetch failures are logged and contained. If ctx is cancelled the
// partial graph is returned together with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, seed string, maxDepth int) (*memory.Graph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("max depth must be >= 0, got %d", maxDepth)
	}
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}

	graph := memory.NewGraph()
	visited := make(map[string]bool)
	queue := NewQueue()
	queue.Push(storage.QueueEntry{URL: seed, Depth: 0})
	c.notify(0, 1, 0, 0, 0)

	logrus.Infof("Starting crawl: seed=%s, max_depth=%d, delay=%v", seed, maxDepth, c.delay)

	for !queue.IsEmpty() {
		entry, _ := queue.Pop()

		if visited[entry.URL] || entry.Depth > maxDepth {
			logrus.Debugf("Skipping %s (depth=%d, visited=%t)", entry.URL, entry.Depth, visited[entry.URL])
			if c.skipCallback != nil {
				c.skipCallback()
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			logrus.Warnf("Crawl interrupted with %d entries queued", queue.Size()+1)
			return graph, err
		}

		visited[entry.URL] = true
		graph.AddNode(entry.URL)
		c.notify(1, 0, 0, 0, 0)

		logrus.Infof("Scraping: %s (depth=%d)", entry.URL, entry.Depth)

		links, err := c.expand(ctx, entry.URL)
		if err != nil {
			logrus.Errorf("Error scraping %s: %v", entry.URL, err)
			graph.MarkFailed(entry.URL, entry.Depth, err)
			c.notify(0, 0, 0, 0, 1)
		} else {
			graph.MarkVisited(entry.URL, entry.Depth)
			c.notify(0, 0, 0, 1, 0)
			c.record(graph, queue, entry, links)
		}

		if err := c.wait(ctx, c.delay); err != nil {
			logrus.Warnf("Crawl interrupted with %d entries queued", queue.Size())
			return graph, err
		}
	}

	nodes, edges := graph.GetStats()
	logrus.Infof("Crawl finished: %d nodes, %d edges, %d pages expanded", nodes, edges, len(visited))

	return graph, nil
}

// expand fetches a page and returns its article links
func (c *Crawler) expand(ctx context.Context, url string) ([]string, error) {
	start := time.Now()
	content, err := c.fetcher.Fetch(ctx, url)
	if c.fetchTimeCallback != nil {
		c.fetchTimeCallback(time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	return c.extractor.ExtractLinks(content), nil
}

// record adds the edges found on a page and enqueues their targets
func (c *Crawler) record(graph *memory.Graph, queue *Queue, source storage.QueueEntry, links []string) {
	nextDepth := source.Depth + 1

	for _, link := range links {
		isNewNode := !graph.HasNode(link)
		if graph.AddEdge(source.URL, link) {
			c.notify(0, 0, 1, 0, 0)
			logrus.Debugf("Edge: %s -> %s (depth %d->%d)", source.URL, link, source.Depth, nextDepth)
		}
		if isNewNode {
			c.notify(0, 1, 0, 0, 0)
		}

		queue.Push(storage.QueueEntry{URL: link, Depth: nextDepth})
	}
}

func (c *Crawler) notify(nodesCrawled, nodesDiscovered, edgesRecorded, pagesFetched, pagesFailed int) {
	if c.metricsCallback != nil {
		c.metricsCallback(nodesCrawled, nodesDiscovered, edgesRecorded, pagesFetched, pagesFailed)
	}
}

// sleep waits for d unless ctx is cancelled first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
