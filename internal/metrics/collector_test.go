package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpSearch, 100*time.Millisecond)
	c.RecordTiming(OpSearch, 300*time.Millisecond)
	c.RecordTiming(OpArchiveWrite, 5*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Search)
	assert.Equal(t, int64(2), snap.Search.Count)
	assert.Equal(t, int64(400), snap.Search.TotalTimeMs)
	assert.Equal(t, float64(200), snap.Search.AvgTimeMs)
	assert.Equal(t, int64(100), snap.Search.MinTimeMs)
	assert.Equal(t, int64(300), snap.Search.MaxTimeMs)

	require.NotNil(t, snap.ArchiveWrite)
	assert.Equal(t, int64(1), snap.ArchiveWrite.Count)

	// Operations never recorded are omitted from the snapshot.
	assert.Nil(t, snap.Summarize)
	assert.Nil(t, snap.DBWrite)
	assert.Nil(t, snap.Broadcast)
}

func TestRecordBroadcastTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpBroadcast, 2*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Broadcast)
	assert.Equal(t, int64(1), snap.Broadcast.Count)
}

func TestSnapshotUptime(t *testing.T) {
	c := NewCollector()
	assert.GreaterOrEqual(t, c.Snapshot().UptimeSeconds, float64(0))
}

func TestRecordTimingConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.RecordTiming(OpDBWrite, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.NotNil(t, snap.DBWrite)
	assert.Equal(t, int64(1000), snap.DBWrite.Count)
}
