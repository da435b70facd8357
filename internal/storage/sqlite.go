package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
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
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		min_utc INTEGER NOT NULL,
		max_utc INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		termination_reason TEXT
	);

	CREATE TABLE IF NOT EXISTS nodes (
		node_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		visited INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		UNIQUE(run_id, name)
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		weight INTEGER DEFAULT 1,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		FOREIGN KEY (from_node_id) REFERENCES nodes(node_id),
		FOREIGN KEY (to_node_id) REFERENCES nodes(node_id),
		UNIQUE(run_id, from_node_id, to_node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_run ON nodes(run_id, name);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartRun registers a new crawl run. A run ID is generated when empty.
func (s *Storage) StartRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, origin, min_utc, max_utc, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.Origin, run.MinUTC, run.MaxUTC, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stamps the end time and termination reason of a run
func (s *Storage) FinishRun(runID, reason string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, termination_reason = ?
		WHERE run_id = ?
	`, time.Now(), reason, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun retrieves a run by ID, returns nil if not found
func (s *Storage) GetRun(runID string) (*Run, error) {
	var (
		run        Run
		finishedAt sql.NullTime
		reason     sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT run_id, origin, min_utc, max_utc, started_at, finished_at, termination_reason
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.Origin, &run.MinUTC, &run.MaxUTC, &run.StartedAt, &finishedAt, &reason)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.FinishedAt = finishedAt.Time
	run.TerminationReason = reason.String
	return &run, nil
}

// UpsertNode inserts a node for the run or refreshes its visited flag.
// Returns the node_id of the inserted/existing node
func (s *Storage) UpsertNode(runID, name string, visited bool) (int, error) {
	return upsertNode(s.db, runID, name, visited)
}

func upsertNode(db execer, runID, name string, visited bool) (int, error) {
	_, err := db.Exec(`
		INSERT INTO nodes (run_id, name, visited)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			visited = MAX(nodes.visited, EXCLUDED.visited)
	`, runID, name, visited)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert node: %w", err)
	}

	var nodeID int
	err = db.QueryRow("SELECT node_id FROM nodes WHERE run_id = ? AND name = ?", runID, name).Scan(&nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve node_id: %w", err)
	}

	return nodeID, nil
}

// GetNode retrieves a node by run and name, returns nil if not found
func (s *Storage) GetNode(runID, name string) (*Node, error) {
	var node Node
	err := s.db.QueryRow(`
		SELECT node_id, name, visited, created_at
		FROM nodes
		WHERE run_id = ? AND name = ?
	`, runID, name).Scan(&node.NodeID, &node.Name, &node.Visited, &node.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	return &node, nil
}

// UpsertEdge inserts a new edge or overwrites the weight of an existing one
func (s *Storage) UpsertEdge(runID string, fromID, toID, weight int) error {
	return upsertEdge(s.db, runID, fromID, toID, weight)
}

func upsertEdge(db execer, runID string, fromID, toID, weight int) error {
	_, err := db.Exec(`
		INSERT INTO edges (run_id, from_node_id, to_node_id, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, from_node_id, to_node_id) DO UPDATE SET
			weight = EXCLUDED.weight
	`, runID, fromID, toID, weight)

	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// LoadEdges returns all edges of a run ordered by insertion
func (s *Storage) LoadEdges(runID string) ([]Edge, error) {
	rows, err := s.db.Query(`
		SELECT f.name, t.name, e.weight
		FROM edges e
		JOIN nodes f ON f.node_id = e.from_node_id
		JOIN nodes t ON t.node_id = e.to_node_id
		WHERE e.run_id = ?
		ORDER BY e.edge_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var edge Edge
		if err := rows.Scan(&edge.From, &edge.To, &edge.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

// CountNodes returns the number of nodes stored for a run
func (s *Storage) CountNodes(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE run_id = ?", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// RunSink writes graph snapshots into the tables of a single run
type RunSink struct {
	Store *Storage
	RunID string
}

// WriteGraph stores every node and edge of the snapshot in one transaction
func (rs *RunSink) WriteGraph(nodes []Node, edges []Edge) error {
	tx, err := rs.Store.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int, len(nodes))
	for _, node := range nodes {
		id, err := upsertNode(tx, rs.RunID, node.Name, node.Visited)
		if err != nil {
			return fmt.Errorf("node %s: %w", node.Name, err)
		}
		ids[node.Name] = id
	}

	for _, edge := range edges {
		fromID, fromOK := ids[edge.From]
		toID, toOK := ids[edge.To]
		if !fromOK || !toOK {
			return fmt.Errorf("edge %s -> %s references an unknown node", edge.From, edge.To)
		}
		if err := upsertEdge(tx, rs.RunID, fromID, toID, edge.Weight); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", edge.From, edge.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}
	return nil
}
