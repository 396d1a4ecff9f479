package storage

import "time"

// Node status values
const (
	StatusDiscovered = "discovered" // only seen as a link target
	StatusVisited    = "visited"
	StatusFailed     = "failed"
)

// Node represents an article in the link graph
type Node struct {
	NodeID     int
	URL        string
	Label      string
	Status     string
	Depth      int // BFS level at expansion, -1 if never expanded
	FetchError string
	CreatedAt  time.Time
}

// Edge represents a directed link between two articles
type Edge struct {
	EdgeID     int
	FromNodeID int
	ToNodeID   int
	FromURL    string
	ToURL      string
}

// QueueEntry represents an item in the BFS crawl queue
type QueueEntry struct {
	URL   string
	Depth int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	NodesCrawled      int       `json:"nodes_crawled"`
	EdgesRecorded     int       `json:"edges_recorded"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	EntriesSkipped    int       `json:"entries_skipped"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
