package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wiki = "https://example.org/wiki/"

// stubFetcher serves pages whose content is a newline separated list of links
type stubFetcher struct {
	pages  map[string][]string
	fail   map[string]error
	calls  map[string]int
	order  []string
	cancel func() // invoked after the n-th fetch when set
	after  int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string][]string),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *stubFetcher) link(from string, to ...string) {
	f.pages[wiki+from] = append(f.pages[wiki+from], prefixAll(to)...)
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls[url]++
	f.order = append(f.order, url)
	if f.cancel != nil && len(f.order) == f.after {
		f.cancel()
	}
	if err, ok := f.fail[url]; ok {
		return nil, &FetchError{URL: url, StatusCode: 500, Err: err}
	}
	return []byte(strings.Join(f.pages[url], "\n")), nil
}

type lineExtractor struct{}

func (lineExtractor) ExtractLinks(content []byte) []string {
	seen := make(map[string]bool)
	var links []string
	for _, line := range strings.Split(string(content), "\n") {
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		links = append(links, line)
	}
	return links
}

func prefixAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = wiki + n
	}
	return out
}

type waitRecorder struct {
	calls int
}

func (w *waitRecorder) wait(ctx context.Context, _ time.Duration) error {
	w.calls++
	return ctx.Err()
}

func newTestCrawler(f Fetcher, w *waitRecorder, opts ...Option) *Crawler {
	opts = append([]Option{WithWaitFunc(w.wait)}, opts...)
	return NewCrawler(f, lineExtractor{}, opts...)
}

func nodeURLs(nodes []storage.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.URL
	}
	return out
}

func edgePairs(edges []storage.Edge) [][2]string {
	out := make([][2]string, len(edges))
	for i, e := range edges {
		out[i] = [2]string{e.FromURL, e.ToURL}
	}
	return out
}

func TestCrawl_DepthBoundAndFailure(t *testing.T) {
	f := newStubFetcher()
	f.link("A", "B", "C")
	f.link("B", "D")
	f.link("D", "E")
	f.fail[wiki+"C"] = errors.New("connection reset")

	w := &waitRecorder{}
	g, err := newTestCrawler(f, w).Crawl(context.Background(), wiki+"A", 1)
	require.NoError(t, err)

	assert.ElementsMatch(t, prefixAll([]string{"A", "B", "C", "D"}), nodeURLs(g.Nodes()))
	assert.ElementsMatch(t, [][2]string{
		{wiki + "A", wiki + "B"},
		{wiki + "A", wiki + "C"},
		{wiki + "B", wiki + "D"},
	}, edgePairs(g.Edges()))

	assert.Zero(t, f.calls[wiki+"D"], "D sits at depth 2 and must not be fetched")
	assert.Equal(t, []string{wiki + "A", wiki + "B", wiki + "C"}, f.order, "pages are expanded in BFS order")

	c := g.GetNode(wiki + "C")
	require.NotNil(t, c)
	assert.Equal(t, storage.StatusFailed, c.Status)
	assert.Contains(t, c.FetchError, "connection reset")
	assert.Zero(t, g.OutDegree(wiki+"C"))

	d := g.GetNode(wiki + "D")
	require.NotNil(t, d)
	assert.Equal(t, storage.StatusDiscovered, d.Status)
	assert.Equal(t, -1, d.Depth)

	assert.Equal(t, 3, w.calls, "delay follows every expanded page")
}

func TestCrawl_SelfLoop(t *testing.T) {
	f := newStubFetcher()
	f.link("A", "A")

	g, err := newTestCrawler(f, &waitRecorder{}).Crawl(context.Background(), wiki+"A", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls[wiki+"A"])
	assert.True(t, g.HasEdge(wiki+"A", wiki+"A"))
	nodes, edges := g.GetStats()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 1, edges)
}

func TestCrawl_ZeroDepth(t *testing.T) {
	t.Run("seed without links", func(t *testing.T) {
		f := newStubFetcher()
		g, err := newTestCrawler(f, &waitRecorder{}).Crawl(context.Background(), wiki+"A", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{wiki + "A"}, nodeURLs(g.Nodes()))
		assert.Empty(t, g.Edges())
	})

	t.Run("seed links are recorded but not expanded", func(t *testing.T) {
		f := newStubFetcher()
		f.link("A", "B", "C")
		f.link("B", "D")

		g, err := newTestCrawler(f, &waitRecorder{}).Crawl(context.Background(), wiki+"A", 0)
		require.NoError(t, err)
		assert.Equal(t, prefixAll([]string{"A", "B", "C"}), nodeURLs(g.Nodes()))
		assert.Len(t, g.Edges(), 2)
		assert.Equal(t, []string{wiki + "A"}, f.order)
	})
}

func TestCrawl_NoReprocessing(t *testing.T) {
	// Diamond with back links: every page links to every other one
	f := newStubFetcher()
	f.link("A", "B", "C", "D")
	f.link("B", "A", "C", "D")
	f.link("C", "A", "B", "D")
	f.link("D", "A", "B", "C")

	w := &waitRecorder{}
	g, err := newTestCrawler(f, w).Crawl(context.Background(), wiki+"A", 5)
	require.NoError(t, err)

	for url, n := range f.calls {
		assert.Equal(t, 1, n, "fetched %s more than once", url)
	}
	assert.Len(t, f.calls, 4)
	assert.Equal(t, 4, w.calls, "skipped entries incur no delay")

	_, edges := g.GetStats()
	assert.Equal(t, 12, edges)
}

func TestCrawl_FailureContainment(t *testing.T) {
	f := newStubFetcher()
	f.link("A", "B", "C", "D")
	f.fail[wiki+"B"] = errors.New("timeout")
	f.fail[wiki+"C"] = errors.New("404")

	g, err := newTestCrawler(f, &waitRecorder{}).Crawl(context.Background(), wiki+"A", 1)
	require.NoError(t, err)

	assert.Equal(t, prefixAll([]string{"A", "B", "C", "D"}), f.order)
	assert.Equal(t, storage.StatusVisited, g.GetNode(wiki+"D").Status)
	assert.Equal(t, storage.StatusFailed, g.GetNode(wiki+"B").Status)
	assert.Equal(t, 1, f.calls[wiki+"B"], "failed pages are not retried")
}

func TestCrawl_MetricsCallback(t *testing.T) {
	f := newStubFetcher()
	f.link("A", "B", "C")
	f.link("B", "A")
	f.fail[wiki+"C"] = errors.New("boom")

	var crawled, discovered, edges, fetched, failed, skipped int
	var fetchTimes int
	c := newTestCrawler(f, &waitRecorder{},
		WithMetricsCallback(func(c, d, e, fe, fa int) {
			crawled += c
			discovered += d
			edges += e
			fetched += fe
			failed += fa
		}),
		WithFetchTimeCallback(func(time.Duration) { fetchTimes++ }),
		WithSkipCallback(func() { skipped++ }),
	)

	_, err := c.Crawl(context.Background(), wiki+"A", 1)
	require.NoError(t, err)

	assert.Equal(t, 3, crawled)
	assert.Equal(t, 3, discovered)
	assert.Equal(t, 3, edges)
	assert.Equal(t, 2, fetched)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, fetchTimes)
	assert.Equal(t, 1, skipped, "A re-queued from B at depth 2")
}

func TestCrawl_Cancellation(t *testing.T) {
	f := newStubFetcher()
	f.link("A", "B", "C")
	f.link("B", "D")
	f.link("C", "E")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.cancel = cancel
	f.after = 2

	g, err := newTestCrawler(f, &waitRecorder{}).Crawl(ctx, wiki+"A", 3)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, g)

	assert.Equal(t, prefixAll([]string{"A", "B"}), f.order)
	assert.True(t, g.HasEdge(wiki+"B", wiki+"D"), "work done before cancellation is kept")
}

func TestCrawl_InvalidInput(t *testing.T) {
	f := newStubFetcher()
	c := newTestCrawler(f, &waitRecorder{})

	for _, seed := range []string{"", "not a url", "/wiki/A", "ftp://example.org/wiki/A"} {
		_, err := c.Crawl(context.Background(), seed, 1)
		assert.ErrorIs(t, err, ErrInvalidSeed, "seed %q", seed)
	}

	_, err := c.Crawl(context.Background(), wiki+"A", -1)
	assert.Error(t, err)
	assert.Empty(t, f.calls, "no fetch happens for invalid input")
}

func TestSleep(t *testing.T) {
	require.NoError(t, sleep(context.Background(), 0))
	require.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
