package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
)

// Tracker accumulates crawl counters reported through the crawler callbacks
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a tracker whose clock starts now
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// IncrementEntriesSkipped counts a queue entry discarded without a fetch
func (t *Tracker) IncrementEntriesSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EntriesSkipped++
}

// Record applies a batch of counter deltas reported by the crawler
func (t *Tracker) Record(nodesCrawled, nodesDiscovered, edgesRecorded, pagesFetched, pagesFailed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesCrawled += nodesCrawled
	t.data.NodesDiscovered += nodesDiscovered
	t.data.EdgesRecorded += edgesRecorded
	t.data.PagesFetched += pagesFetched
	t.data.PagesFailed += pagesFailed
}

// RecordFetchTime adds one fetch duration, successful or not
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of the counters with fetch times aggregated
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Finish stamps the end time and termination reason, returning the final snapshot.
// Counters recorded afterwards are still accepted.
func (t *Tracker) Finish(reason string) storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() storage.Metrics {
	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return snapshot
}

// LogProgress returns the progress line for the current counters
func (t *Tracker) LogProgress() string {
	return Summary(t.GetSnapshot())
}

// Summary formats m as a single log line
func Summary(m storage.Metrics) string {
	return fmt.Sprintf("Articles: %d discovered, %d crawled | Links: %d | Pages: %d fetched, %d failed | Skipped: %d",
		m.NodesDiscovered,
		m.NodesCrawled,
		m.EdgesRecorded,
		m.PagesFetched,
		m.PagesFailed,
		m.EntriesSkipped,
	)
}

// Elapsed is the crawl duration, measured up to now while the crawl runs
func Elapsed(m storage.Metrics) time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// WriteToFile exports m to a JSON file
func WriteToFile(path string, m storage.Metrics) error {
	jsonData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}
