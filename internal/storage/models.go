package storage

import "time"

// Node represents a community in the reference graph
type Node struct {
	NodeID    int
	Name      string
	Visited   bool
	CreatedAt time.Time
}

// Edge represents a weighted directed reference between two communities
type Edge struct {
	From   string
	To     string
	Weight int
}

// Run describes one crawl from a single origin over a fixed time window
type Run struct {
	RunID             string
	Origin            string
	MinUTC            int64
	MaxUTC            int64
	StartedAt         time.Time
	FinishedAt        time.Time
	TerminationReason string
}

// GraphSink persists a finished graph snapshot
type GraphSink interface {
	WriteGraph(nodes []Node, edges []Edge) error
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	NodesCrawled      int       `json:"nodes_crawled"`
	CommunitiesFailed int       `json:"communities_failed"`
	EdgesRecorded     int       `json:"edges_recorded"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	RecordsFetched    int       `json:"records_fetched"`
	ReferencesFound   int       `json:"references_found"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
