package crawler

import (
	"fmt"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
)

// Queue is the FIFO frontier of the breadth-first traversal.
// It is owned by a single crawl and is not safe for concurrent use.
type Queue struct {
	items  []storage.QueueEntry
	head   int
	pushed map[string]bool // key: url@depth
}

// NewQueue creates a new BFS queue
func NewQueue() *Queue {
	return &Queue{
		pushed: make(map[string]bool),
	}
}

// Push appends an entry at the tail unless the same url@depth pair was
// already pushed. Returns true if added, false if duplicate
func (q *Queue) Push(entry storage.QueueEntry) bool {
	key := makeKey(entry.URL, entry.Depth)
	if q.pushed[key] {
		return false
	}

	q.pushed[key] = true
	q.items = append(q.items, entry)
	return true
}

// Pop removes and returns the entry at the head.
// Returns (empty, false) once the queue is exhausted
func (q *Queue) Pop() (storage.QueueEntry, bool) {
	if q.head >= len(q.items) {
		return storage.QueueEntry{}, false
	}

	entry := q.items[q.head]
	q.items[q.head] = storage.QueueEntry{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array
	if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append([]storage.QueueEntry(nil), q.items[q.head:]...)
		q.head = 0
	}

	return entry, true
}

// IsEmpty returns true if the queue has no items
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// Size returns the current number of items in the queue
func (q *Queue) Size() int {
	return len(q.items) - q.head
}

// makeKey creates a deduplication key from url and depth
func makeKey(url string, depth int) string {
	return fmt.Sprintf("%s@%d", url, depth)
}
