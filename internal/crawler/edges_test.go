package crawler

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagged(refs ...string) []TaggedRecord {
	out := make([]TaggedRecord, 0, len(refs))
	for i, ref := range refs {
		out = append(out, TaggedRecord{Record: rec(string(rune('a'+i)), "/r/"+ref), Reference: ref})
	}
	return out
}

func TestBuildCountsPerDestination(t *testing.T) {
	b := NewEdgeBuilder(nil, 0)

	edges, discovered := b.Build(tagged("rust", "zig", "rust", "rust"), "go")

	assert.Equal(t, []WeightedEdge{
		{Destination: "rust", Weight: 3},
		{Destination: "zig", Weight: 1},
	}, edges)
	assert.Equal(t, []string{"rust", "zig"}, discovered)
}

func TestBuildSkipsSourceAndEmpty(t *testing.T) {
	b := NewEdgeBuilder(nil, 0)

	input := append(tagged("go", "rust"), TaggedRecord{Record: rec("x", "")})
	edges, discovered := b.Build(input, "Go")

	assert.Equal(t, []WeightedEdge{{Destination: "rust", Weight: 1}}, edges)
	assert.Equal(t, []string{"rust"}, discovered)
}

func TestBuildOnNothing(t *testing.T) {
	b := NewEdgeBuilder(nil, 0)
	edges, discovered := b.Build(nil, "go")
	assert.Empty(t, edges)
	assert.Empty(t, discovered)
}

func TestBuildWaitsPerDestination(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	b := NewEdgeBuilder(clk, 100*time.Millisecond)

	type result struct {
		edges      []WeightedEdge
		discovered []string
	}
	done := make(chan result, 1)
	go func() {
		edges, discovered := b.Build(tagged("rust", "zig", "rust"), "go")
		done <- result{edges, discovered}
	}()

	// One delay per distinct destination
	for i := 0; i < 2; i++ {
		require.NoError(t, clk.WaitAdvance(100*time.Millisecond, 5*time.Second, 1))
	}

	select {
	case res := <-done:
		assert.Len(t, res.edges, 2)
		assert.Equal(t, []string{"rust", "zig"}, res.discovered)
	case <-time.After(5 * time.Second):
		t.Fatal("Build did not return after both delays elapsed")
	}
}
