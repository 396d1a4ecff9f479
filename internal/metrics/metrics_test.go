package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Record(t *testing.T) {
	tr := NewTracker()

	tr.Record(0, 1, 0, 0, 0)
	tr.Record(1, 2, 2, 1, 0)
	tr.Record(1, 0, 0, 0, 1)
	tr.IncrementEntriesSkipped()
	tr.RecordFetchTime(100 * time.Millisecond)
	tr.RecordFetchTime(300 * time.Millisecond)

	snap := tr.GetSnapshot()
	assert.Equal(t, 2, snap.NodesCrawled)
	assert.Equal(t, 3, snap.NodesDiscovered)
	assert.Equal(t, 2, snap.EdgesRecorded)
	assert.Equal(t, 1, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, 1, snap.EntriesSkipped)
	assert.Equal(t, int64(400), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(200), snap.AvgFetchTimeMs)

	assert.Equal(t,
		"Articles: 3 discovered, 2 crawled | Links: 2 | Pages: 1 fetched, 1 failed | Skipped: 1",
		tr.LogProgress())
}

func TestTracker_Finish(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, 2, 1, 1, 0)
	tr.RecordFetchTime(50 * time.Millisecond)

	running := tr.GetSnapshot()
	assert.True(t, running.EndTime.IsZero())
	assert.Empty(t, running.TerminationReason)
	assert.GreaterOrEqual(t, Elapsed(running), time.Duration(0))

	final := tr.Finish("signal")
	assert.Equal(t, "signal", final.TerminationReason)
	assert.False(t, final.EndTime.Before(final.StartTime))
	assert.Equal(t, final.EndTime.Sub(final.StartTime), Elapsed(final))
	assert.Equal(t, int64(50), final.AvgFetchTimeMs)
	assert.Equal(t,
		"Articles: 2 discovered, 1 crawled | Links: 1 | Pages: 1 fetched, 0 failed | Skipped: 0",
		Summary(final))

	assert.Equal(t, final, tr.GetSnapshot(), "later snapshots keep the finish stamp")
}

func TestWriteToFile(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, 1, 0, 1, 0)
	final := tr.Finish("queue_empty")

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, WriteToFile(path, final))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m storage.Metrics
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "queue_empty", m.TerminationReason)
	assert.Equal(t, 1, m.PagesFetched)
	assert.False(t, m.EndTime.Before(m.StartTime))
}

func TestWriteToFile_BadPath(t *testing.T) {
	err := WriteToFile(filepath.Join(t.TempDir(), "missing", "metrics.json"), storage.Metrics{})
	assert.Error(t, err)
}
