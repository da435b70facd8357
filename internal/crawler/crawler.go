package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/metrics"
	"github.com/alvmarrod/ref-weaver/internal/storage"
)

// Termination reasons reported once Run returns
const (
	ReasonQueueEmpty = "queue_empty"
	ReasonSignal     = "signal"
)

// SinkFactory opens the stores a finished graph is flushed to. It is called
// once the origin is known, since output names depend on it.
type SinkFactory func(origin string) ([]storage.GraphSink, error)

// Config wires the collaborators of a Crawler
type Config struct {
	Origin         OriginSelector
	Records        RecordSource
	Edges          *EdgeBuilder
	MinUTC         int64
	MaxUTC         int64
	IterationDelay time.Duration
	Clock          clock.Clock
	Tracker        *metrics.Tracker
	Sinks          SinkFactory
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Origin == nil {
		err = multierror.Append(err, fmt.Errorf("origin selector not provided"))
	}
	if cfg.Records == nil {
		err = multierror.Append(err, fmt.Errorf("record source not provided"))
	}
	if cfg.MaxUTC < cfg.MinUTC {
		err = multierror.Append(err, fmt.Errorf("invalid window [%d, %d)", cfg.MinUTC, cfg.MaxUTC))
	}
	if cfg.IterationDelay < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for iteration delay"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Edges == nil {
		cfg.Edges = NewEdgeBuilder(cfg.Clock, 0)
	}
	if cfg.Tracker == nil {
		cfg.Tracker = metrics.NewTracker()
	}

	return err
}

// Crawler walks the community reference graph from a single origin
type Crawler struct {
	cfg      Config
	graph    *memory.MemoryGraph
	frontier *Frontier

	mu      sync.RWMutex
	visited map[string]struct{}
	origin  string
	reason  string
}

// NewCrawler creates a new crawler instance
func NewCrawler(cfg Config) (*Crawler, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("crawler config validation failed: %w", err)
	}

	return &Crawler{
		cfg:      cfg,
		graph:    memory.NewMemoryGraph(),
		frontier: NewFrontier(),
		visited:  make(map[string]struct{}),
	}, nil
}

// NewFromConfig builds a crawler talking to the search API described by cfg
func NewFromConfig(cfg *config.Config, origin OriginSelector, tracker *metrics.Tracker, sinks SinkFactory) (*Crawler, error) {
	fetcher := NewFetcher(FetcherConfig{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		RequestDelay:   cfg.RequestDelay(),
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     cfg.RetryDelay(),
		Clock:          clock.WallClock,
		Tracker:        tracker,
	})

	return NewCrawler(Config{
		Origin:         origin,
		Records:        NewAccumulator(fetcher, cfg.APIBaseURL),
		Edges:          NewEdgeBuilder(clock.WallClock, cfg.EdgeDelay()),
		MinUTC:         cfg.MinUTC,
		MaxUTC:         cfg.MaxUTC,
		IterationDelay: cfg.IterationDelay(),
		Clock:          clock.WallClock,
		Tracker:        tracker,
		Sinks:          sinks,
	})
}

// Run crawls until the frontier is empty or ctx is cancelled, then flushes
// the graph to the configured sinks. The graph is returned even when the
// flush fails.
func (c *Crawler) Run(ctx context.Context) (*memory.MemoryGraph, error) {
	origin, err := c.cfg.Origin.SelectOrigin()
	if err != nil {
		return nil, fmt.Errorf("failed to select origin: %w", err)
	}
	origin = NormalizeCommunity(origin)

	c.mu.Lock()
	c.origin = origin
	c.mu.Unlock()

	c.graph.AddNode(origin)
	c.frontier.Push(origin)
	c.cfg.Tracker.IncrementNodesDiscovered()

	logrus.Infof("Starting crawl from %s, window [%d, %d)", origin, c.cfg.MinUTC, c.cfg.MaxUTC)

	reason := c.loop(ctx)

	c.mu.Lock()
	c.reason = reason
	c.mu.Unlock()

	nodes, edges := c.graph.GetStats()
	logrus.Infof("Crawl finished (%s): %d communities visited, %d nodes, %d edges",
		reason, len(c.Visited()), nodes, edges)

	return c.graph, c.flush(origin)
}

func (c *Crawler) loop(ctx context.Context) string {
	for {
		if ctx.Err() != nil {
			return ReasonSignal
		}

		name, ok := c.frontier.Pop()
		if !ok {
			return ReasonQueueEmpty
		}

		if c.IsVisited(name) {
			continue
		}
		c.markVisited(name)

		if !c.processCommunity(ctx, name) {
			continue
		}

		c.pause(ctx, c.cfg.IterationDelay)
	}
}

// processCommunity fetches, tags and links one community.
// Returns true when at least one edge was recorded.
func (c *Crawler) processCommunity(ctx context.Context, name string) bool {
	logrus.Infof("Processing %s (frontier=%d, visited=%d)", name, c.frontier.Size(), len(c.Visited()))

	records, err := c.cfg.Records.Accumulate(ctx, name, c.cfg.MinUTC, c.cfg.MaxUTC)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.cfg.Tracker.IncrementCommunitiesFailed()
		logrus.Errorf("Failed to fetch records for %s: %v", name, err)
		return false
	}

	tagged := Tag(records, name)
	c.cfg.Tracker.AddReferences(len(tagged))
	if len(tagged) == 0 {
		logrus.Debugf("No references found in %d records of %s", len(records), name)
		return false
	}

	edges, discovered := c.cfg.Edges.Build(tagged, name)
	for _, edge := range edges {
		isNew := !c.graph.HasNode(edge.Destination)

		if err := c.graph.SetEdge(name, edge.Destination, edge.Weight); err != nil {
			logrus.Warnf("Failed to record edge %s -> %s: %v", name, edge.Destination, err)
			continue
		}

		if isNew {
			c.cfg.Tracker.IncrementNodesDiscovered()
		}
		c.cfg.Tracker.IncrementEdgesRecorded()
		logrus.Infof("Edge: %s -> %s (weight=%d)", name, edge.Destination, edge.Weight)
	}

	c.frontier.Push(discovered...)
	return len(edges) > 0
}

func (c *Crawler) markVisited(name string) {
	c.mu.Lock()
	c.visited[name] = struct{}{}
	c.mu.Unlock()

	if err := c.graph.MarkVisited(name); err != nil {
		logrus.Warnf("Failed to mark %s visited in graph: %v", name, err)
	}
	c.cfg.Tracker.IncrementNodesCrawled()
}

func (c *Crawler) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-c.cfg.Clock.After(d):
	case <-ctx.Done():
	}
}

func (c *Crawler) flush(origin string) error {
	if c.cfg.Sinks == nil {
		return nil
	}

	sinks, err := c.cfg.Sinks(origin)
	if err != nil {
		return fmt.Errorf("failed to open graph stores: %w", err)
	}

	var errs error
	for _, sink := range sinks {
		if err := c.graph.Flush(sink); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// IsVisited reports whether a community was already processed
func (c *Crawler) IsVisited(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.visited[name]
	return ok
}

// Visited returns the processed communities in no particular order
func (c *Crawler) Visited() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.visited))
	for name := range c.visited {
		names = append(names, name)
	}
	return names
}

// FrontierSize returns the number of pending entries, duplicates included
func (c *Crawler) FrontierSize() int {
	return c.frontier.Size()
}

// Frontier exposes the pending entries for inspection
func (c *Crawler) Frontier() []string {
	return c.frontier.GetAllEntries()
}

// Graph returns the graph built so far
func (c *Crawler) Graph() *memory.MemoryGraph {
	return c.graph
}

// Origin returns the community the crawl started from, once selected
func (c *Crawler) Origin() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

// TerminationReason reports why Run stopped
func (c *Crawler) TerminationReason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}
