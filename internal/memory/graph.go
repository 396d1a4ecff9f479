package memory

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

type edgeKey struct {
	from, to int
}

// Graph is the directed article link graph built by one crawl.
// Nodes and edges are only ever added; insertion order is preserved.
type Graph struct {
	nodes       map[string]*storage.Node // url -> node
	nodesById   map[int]*storage.Node    // nodeID -> node
	edges       map[edgeKey]struct{}
	edgeList    []storage.Edge
	outDegree   map[int]int
	inDegree    map[int]int
	nodeCounter int // auto-increment for node IDs
	mu          sync.RWMutex
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*storage.Node),
		nodesById: make(map[int]*storage.Node),
		edges:     make(map[edgeKey]struct{}),
		outDegree: make(map[int]int),
		inDegree:  make(map[int]int),
	}
}

// AddNode inserts a node for url if absent.
// Returns the node_id of the inserted/existing node
func (g *Graph) AddNode(rawURL string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNodeLocked(rawURL).NodeID
}

func (g *Graph) addNodeLocked(rawURL string) *storage.Node {
	if node, exists := g.nodes[rawURL]; exists {
		return node
	}

	g.nodeCounter++
	node := &storage.Node{
		NodeID:    g.nodeCounter,
		URL:       rawURL,
		Label:     Label(rawURL),
		Status:    storage.StatusDiscovered,
		Depth:     -1,
		CreatedAt: time.Now(),
	}

	g.nodes[rawURL] = node
	g.nodesById[node.NodeID] = node
	return node
}

// AddEdge records from -> to, creating either node if needed.
// Returns false if the edge was already present.
func (g *Graph) AddEdge(from, to string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	src := g.addNodeLocked(from)
	dst := g.addNodeLocked(to)

	key := edgeKey{from: src.NodeID, to: dst.NodeID}
	if _, exists := g.edges[key]; exists {
		return false
	}

	g.edges[key] = struct{}{}
	g.edgeList = append(g.edgeList, storage.Edge{
		EdgeID:     len(g.edgeList) + 1,
		FromNodeID: src.NodeID,
		ToNodeID:   dst.NodeID,
		FromURL:    from,
		ToURL:      to,
	})
	g.outDegree[src.NodeID]++
	g.inDegree[dst.NodeID]++
	return true
}

// MarkVisited flags a node as expanded at the given depth
func (g *Graph) MarkVisited(rawURL string, depth int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.addNodeLocked(rawURL)
	node.Status = storage.StatusVisited
	node.Depth = depth
	node.FetchError = ""
}

// MarkFailed flags a node whose fetch failed at the given depth
func (g *Graph) MarkFailed(rawURL string, depth int, fetchErr error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.addNodeLocked(rawURL)
	node.Status = storage.StatusFailed
	node.Depth = depth
	if fetchErr != nil {
		node.FetchError = fetchErr.Error()
	}
}

// GetNode retrieves a copy of the node for url, nil if absent
func (g *Graph) GetNode(rawURL string) *storage.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[rawURL]; exists {
		nodeCopy := *node
		return &nodeCopy
	}
	return nil
}

// HasNode reports whether url is a node of the graph
func (g *Graph) HasNode(rawURL string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[rawURL]
	return ok
}

// HasEdge reports whether the edge from -> to was recorded
func (g *Graph) HasEdge(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	src, ok := g.nodes[from]
	if !ok {
		return false
	}
	dst, ok := g.nodes[to]
	if !ok {
		return false
	}
	_, ok = g.edges[edgeKey{from: src.NodeID, to: dst.NodeID}]
	return ok
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []storage.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]storage.Node, 0, len(g.nodesById))
	for id := 1; id <= g.nodeCounter; id++ {
		if node, ok := g.nodesById[id]; ok {
			out = append(out, *node)
		}
	}
	return out
}

// Edges returns all edges in the order they were recorded
func (g *Graph) Edges() []storage.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]storage.Edge, len(g.edgeList))
	copy(out, g.edgeList)
	return out
}

// OutDegree returns the number of distinct links recorded from url
func (g *Graph) OutDegree(rawURL string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, ok := g.nodes[rawURL]; ok {
		return g.outDegree[node.NodeID]
	}
	return 0
}

// InDegree returns the number of distinct articles linking to url
func (g *Graph) InDegree(rawURL string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, ok := g.nodes[rawURL]; ok {
		return g.inDegree[node.NodeID]
	}
	return 0
}

// GetStats returns current graph statistics
func (g *Graph) GetStats() (nodeCount, edgeCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes), len(g.edges)
}

// Flush replaces the graph stored in the database with this one
func (g *Graph) Flush(store *storage.Storage) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	startTime := time.Now()
	logrus.Info("Starting flush to database...")

	if err := store.Reset(); err != nil {
		return fmt.Errorf("failed to reset stored graph: %w", err)
	}

	nodesWritten := 0
	edgesWritten := 0
	var firstErr error

	// Build ID mapping: memory ID -> DB ID
	idMap := make(map[int]int, len(g.nodes))
	for id := 1; id <= g.nodeCounter; id++ {
		node, ok := g.nodesById[id]
		if !ok {
			continue
		}

		dbID, err := store.UpsertNode(*node)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Warnf("Failed to flush node %s: %v", node.URL, err)
			continue
		}

		idMap[node.NodeID] = dbID
		nodesWritten++
	}

	for _, edge := range g.edgeList {
		dbFromID, fromExists := idMap[edge.FromNodeID]
		dbToID, toExists := idMap[edge.ToNodeID]
		if !fromExists || !toExists {
			logrus.Warnf("Skipping edge %s -> %s: node ID mapping not found", edge.FromURL, edge.ToURL)
			continue
		}

		if err := store.UpsertEdge(dbFromID, dbToID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Warnf("Failed to flush edge %s -> %s: %v", edge.FromURL, edge.ToURL, err)
			continue
		}

		edgesWritten++
	}

	duration := time.Since(startTime)
	logrus.Infof("Flush complete: %d nodes, %d edges written in %v", nodesWritten, edgesWritten, duration)

	return firstErr
}

// Label derives a readable article title from its URL.
// Example: https://en.wikipedia.org/wiki/Ancient_Greece -> Ancient Greece
func Label(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}

	title := path.Base(u.EscapedPath())
	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}
	title = strings.ReplaceAll(title, "_", " ")

	if u.Fragment != "" {
		title += " #" + strings.ReplaceAll(u.Fragment, "_", " ")
	}
	return title
}

// VerifyStored reads the snapshot back from store and checks that it holds
// exactly the graph's nodes, with matching status and depth, and its edge count
func (g *Graph) VerifyStored(store *storage.Storage) error {
	stored, err := store.ListNodes()
	if err != nil {
		return err
	}
	storedEdges, err := store.CountEdges()
	if err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(stored) != len(g.nodes) {
		return fmt.Errorf("stored %d nodes, graph has %d", len(stored), len(g.nodes))
	}
	for _, s := range stored {
		node, ok := g.nodes[s.URL]
		if !ok {
			return fmt.Errorf("stored node %s is not in the graph", s.URL)
		}
		if s.Status != node.Status || s.Depth != node.Depth {
			return fmt.Errorf("stored node %s is %s at depth %d, graph has %s at depth %d",
				s.URL, s.Status, s.Depth, node.Status, node.Depth)
		}
	}
	if storedEdges != len(g.edgeList) {
		return fmt.Errorf("stored %d edges, graph has %d", storedEdges, len(g.edgeList))
	}
	return nil
}
