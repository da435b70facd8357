package crawler

import (
	"time"

	"github.com/juju/clock"
)

// WeightedEdge is an outbound reference count from the community being processed
type WeightedEdge struct {
	Destination string
	Weight      int
}

// EdgeBuilder turns tagged records into weighted edges
type EdgeBuilder struct {
	clock clock.Clock
	delay time.Duration
}

// NewEdgeBuilder creates a builder that waits delay after every destination
func NewEdgeBuilder(clk clock.Clock, delay time.Duration) *EdgeBuilder {
	if clk == nil {
		clk = clock.WallClock
	}
	return &EdgeBuilder{clock: clk, delay: delay}
}

// Build groups tagged records by destination in first-seen order. Each
// destination yields exactly one edge, weighted by its record count, and
// appears once in the returned discovery list.
func (b *EdgeBuilder) Build(tagged []TaggedRecord, source string) ([]WeightedEdge, []string) {
	source = NormalizeCommunity(source)

	counts := make(map[string]int)
	var order []string
	for _, record := range tagged {
		dest := record.Reference
		if dest == "" || dest == source {
			continue
		}
		if _, seen := counts[dest]; !seen {
			order = append(order, dest)
		}
		counts[dest]++
	}

	edges := make([]WeightedEdge, 0, len(order))
	discovered := make([]string, 0, len(order))
	for _, dest := range order {
		edges = append(edges, WeightedEdge{Destination: dest, Weight: counts[dest]})
		discovered = append(discovered, dest)
		b.pause()
	}

	return edges, discovered
}

func (b *EdgeBuilder) pause() {
	if b.delay <= 0 {
		return
	}
	<-b.clock.After(b.delay)
}
