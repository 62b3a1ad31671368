package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordIngestLifecycle(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordIngestStarted()
	m.RecordIngestStarted()
	m.RecordIngestCompleted(12)
	m.RecordIngestFailed()

	stats := m.Stats()
	ingestion := stats["ingestion"].(map[string]interface{})
	assert.Equal(t, uint64(2), ingestion["started"])
	assert.Equal(t, uint64(1), ingestion["completed"])
	assert.Equal(t, uint64(1), ingestion["failed"])
	assert.Equal(t, uint64(12), ingestion["chunks_indexed"])
}

func TestRecordQueryOutcomes(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordQuery(true, false, nil)
	m.RecordQuery(false, true, nil)
	m.RecordQuery(false, false, errors.New("boom"))

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, uint64(3), queries["total"])
	assert.Equal(t, uint64(1), queries["cache_hits"])
	assert.Equal(t, uint64(1), queries["not_found"])
	assert.Equal(t, uint64(1), queries["errors"])
}

func TestRecordSearchDuration(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordSearch(100*time.Millisecond, nil)
	m.RecordSearch(300*time.Millisecond, nil)
	m.RecordSearch(0, errors.New("down"))

	stats := m.Stats()
	search := stats["search"].(map[string]interface{})
	assert.Equal(t, uint64(3), search["total"])
	assert.Equal(t, uint64(1), search["errors"])
	assert.InDelta(t, 0.4, search["total_duration_secs"].(float64), 0.01)
	assert.InDelta(t, 0.2, search["avg_duration_secs"].(float64), 0.07)
}

func TestExportPrometheusFormat(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordUpload(2, nil)
	m.RecordChatCall(50*time.Millisecond, nil)

	out := m.Export("docrag", "rag")
	assert.Contains(t, out, "# TYPE docrag_rag_uploads_total counter")
	assert.Contains(t, out, "docrag_rag_uploads_total 2")
	assert.Contains(t, out, "docrag_rag_chat_calls_total 1")
	assert.True(t, strings.Contains(out, "docrag_rag_uptime_seconds"))
}
