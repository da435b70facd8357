package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounters(t *testing.T) {
	tr := NewTracker()
	tr.IncrementNodesDiscovered()
	tr.IncrementNodesDiscovered()
	tr.IncrementNodesCrawled()
	tr.IncrementCommunitiesFailed()
	tr.IncrementEdgesRecorded()
	tr.IncrementPagesFetched()
	tr.IncrementPagesFailed()
	tr.AddRecords(10)
	tr.AddReferences(3)
	tr.RecordFetchTime(20 * time.Millisecond)
	tr.RecordFetchTime(40 * time.Millisecond)

	snap := tr.GetSnapshot()
	assert.Equal(t, 2, snap.NodesDiscovered)
	assert.Equal(t, 1, snap.NodesCrawled)
	assert.Equal(t, 1, snap.CommunitiesFailed)
	assert.Equal(t, 1, snap.EdgesRecorded)
	assert.Equal(t, 1, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, 10, snap.RecordsFetched)
	assert.Equal(t, 3, snap.ReferencesFound)
	assert.Equal(t, int64(60), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(30), snap.AvgFetchTimeMs)
	assert.False(t, snap.StartTime.IsZero())

	assert.Contains(t, tr.LogProgress(), "Communities: 2 discovered, 1 crawled, 1 failed")
}

func TestWriteToFile(t *testing.T) {
	tr := NewTracker()
	tr.IncrementEdgesRecorded()

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tr.WriteToFile(path, "queue_empty"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "queue_empty", got.TerminationReason)
	assert.Equal(t, 1, got.EdgesRecorded)
	assert.False(t, got.EndTime.IsZero())
}

func TestWriteToFileBadPath(t *testing.T) {
	tr := NewTracker()
	err := tr.WriteToFile(filepath.Join(t.TempDir(), "missing", "metrics.json"), "signal")
	assert.ErrorContains(t, err, "failed to write metrics file")
}
