package monitoring

import (
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCounts(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.RecordEnqueue()
		m.RecordDequeue()
	}
	m.RecordVerdict("PASS", false)
	m.RecordVerdict("DROP", false)
	m.RecordVerdict("ERR", true)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.FramesEnqueued)
	assert.Equal(t, int64(3), snap.FramesDequeued)
	assert.Equal(t, int64(1), snap.Passed)
	assert.Equal(t, int64(1), snap.Dropped)
	assert.Equal(t, int64(1), snap.Failed)
}

func TestSnapshotJSON(t *testing.T) {
	m := NewMetrics()
	m.RecordEnqueue()
	m.RecordVerdict("PASS", false)

	data, err := m.SnapshotJSON()
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, sonic.Unmarshal(data, &snap))
	assert.Equal(t, int64(1), snap.FramesEnqueued)
	assert.Equal(t, int64(1), snap.Passed)
}

// Each metric set owns its registry, so building several must not panic
// on duplicate registration.
func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordEnqueue()
	assert.Equal(t, int64(0), b.Snapshot().FramesEnqueued)
}

func TestHandlerExposition(t *testing.T) {
	m := NewMetrics()
	m.RecordEnqueue()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "firegate_frames_enqueued_total 1")
}
