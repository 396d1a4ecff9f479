package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		node_id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT UNIQUE NOT NULL,
		label TEXT,
		status TEXT NOT NULL DEFAULT 'discovered',
		depth INTEGER DEFAULT -1,
		fetch_error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		FOREIGN KEY (from_node_id) REFERENCES nodes(node_id),
		FOREIGN KEY (to_node_id) REFERENCES nodes(node_id),
		UNIQUE(from_node_id, to_node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_url ON nodes(url);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset removes the previously exported graph
func (s *Storage) Reset() error {
	if _, err := s.db.Exec("DELETE FROM edges"); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	return nil
}

// UpsertNode inserts a new node or updates its crawl fields if the URL exists.
// Returns the node_id of the inserted/existing node
func (s *Storage) UpsertNode(node Node) (int, error) {
	_, err := s.db.Exec(`
		INSERT INTO nodes (url, label, status, depth, fetch_error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			label = EXCLUDED.label,
			status = EXCLUDED.status,
			depth = EXCLUDED.depth,
			fetch_error = EXCLUDED.fetch_error
	`, node.URL, node.Label, node.Status, node.Depth, node.FetchError)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert node: %w", err)
	}

	var nodeID int
	err = s.db.QueryRow("SELECT node_id FROM nodes WHERE url = ?", node.URL).Scan(&nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve node_id: %w", err)
	}

	return nodeID, nil
}

// UpsertEdge inserts a new edge, ignoring duplicates
func (s *Storage) UpsertEdge(fromID, toID int) error {
	_, err := s.db.Exec(`
		INSERT INTO edges (from_node_id, to_node_id)
		VALUES (?, ?)
		ON CONFLICT(from_node_id, to_node_id) DO NOTHING
	`, fromID, toID)

	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// ListNodes returns all stored nodes in insertion order
func (s *Storage) ListNodes() ([]*Node, error) {
	rows, err := s.db.Query(`
		SELECT node_id, url, label, status, depth, fetch_error, created_at
		FROM nodes
		ORDER BY node_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		var node Node
		var label, fetchErr sql.NullString
		if err := rows.Scan(&node.NodeID, &node.URL, &label, &node.Status, &node.Depth, &fetchErr, &node.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node.Label = label.String
		node.FetchError = fetchErr.String
		nodes = append(nodes, &node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

// CountEdges returns the number of stored edges
func (s *Storage) CountEdges() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
