// Package metrics 提供文档 RAG 服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics 文档 RAG 服务业务指标。
type Metrics struct {
	// 上传指标
	uploadsTotal  uint64 // 上传文件总数
	uploadsErrors uint64 // 上传失败次数

	// 摄取指标
	ingestsStarted   uint64 // 已启动的摄取任务数
	ingestsCompleted uint64 // 成功完成的摄取任务数
	ingestsFailed    uint64 // 失败的摄取任务数
	chunksIndexed    uint64 // 已索引分块数

	// 查询指标
	queriesTotal     uint64 // 总查询次数
	queriesCacheHits uint64 // 缓存命中次数
	queriesNotFound  uint64 // 未检索到相关段落的查询次数
	queriesErrors    uint64 // 查询错误次数

	// 检索指标
	searchTotal    uint64  // 总检索次数
	searchDuration float64 // 检索总耗时（秒）
	searchErrors   uint64  // 检索错误次数

	// LLM 调用指标
	chatCallsTotal    uint64  // Chat 总调用次数
	chatCallsDuration float64 // Chat 调用总耗时（秒）
	chatCallsErrors   uint64  // Chat 调用错误次数
	embedCallsTotal   uint64  // Embedding 总调用次数
	embedCallsErrors  uint64  // Embedding 调用错误次数

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Get 获取全局指标实例。
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			startTime: time.Now(),
		}
	})
	return globalMetrics
}

// RecordUpload 记录文件上传。
func (m *Metrics) RecordUpload(files int, err error) {
	if err != nil {
		atomic.AddUint64(&m.uploadsErrors, 1)
		return
	}
	atomic.AddUint64(&m.uploadsTotal, uint64(files))
}

// RecordIngestStarted 记录摄取任务启动。
func (m *Metrics) RecordIngestStarted() {
	atomic.AddUint64(&m.ingestsStarted, 1)
}

// RecordIngestCompleted 记录摄取任务完成及其索引的分块数。
func (m *Metrics) RecordIngestCompleted(chunks int) {
	atomic.AddUint64(&m.ingestsCompleted, 1)
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// RecordIngestFailed 记录摄取任务失败。
func (m *Metrics) RecordIngestFailed() {
	atomic.AddUint64(&m.ingestsFailed, 1)
}

// RecordQuery 记录查询。notFound 表示没有检索到相关段落。
func (m *Metrics) RecordQuery(cacheHit, notFound bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	}
	if notFound {
		atomic.AddUint64(&m.queriesNotFound, 1)
	}
}

// RecordSearch 记录向量检索。
func (m *Metrics) RecordSearch(duration time.Duration, err error) {
	atomic.AddUint64(&m.searchTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.searchErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.searchDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordChatCall 记录 Chat 调用。
func (m *Metrics) RecordChatCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.chatCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.chatCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.chatCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordEmbedCall 记录 Embedding 调用。
func (m *Metrics) RecordEmbedCall(err error) {
	atomic.AddUint64(&m.embedCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.embedCallsErrors, 1)
	}
}

// Export 导出 Prometheus 格式指标。
func (m *Metrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	counter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, value))
	}
	gauge := func(name, help string, value float64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %.4f\n\n", prefix, name, value))
	}

	counter("uploads_total", "Total number of uploaded files.", atomic.LoadUint64(&m.uploadsTotal))
	counter("uploads_errors_total", "Number of failed uploads.", atomic.LoadUint64(&m.uploadsErrors))

	counter("ingests_started_total", "Number of ingestion jobs started.", atomic.LoadUint64(&m.ingestsStarted))
	counter("ingests_completed_total", "Number of ingestion jobs completed.", atomic.LoadUint64(&m.ingestsCompleted))
	counter("ingests_failed_total", "Number of ingestion jobs failed.", atomic.LoadUint64(&m.ingestsFailed))
	counter("chunks_indexed_total", "Total chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))

	counter("queries_total", "Total number of queries.", atomic.LoadUint64(&m.queriesTotal))
	counter("queries_cache_hits_total", "Number of answer cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	counter("queries_not_found_total", "Number of queries with no relevant passages.", atomic.LoadUint64(&m.queriesNotFound))
	counter("queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))

	counter("search_total", "Total number of vector searches.", atomic.LoadUint64(&m.searchTotal))
	counter("search_errors_total", "Number of vector search errors.", atomic.LoadUint64(&m.searchErrors))

	counter("chat_calls_total", "Total number of chat completions.", atomic.LoadUint64(&m.chatCallsTotal))
	counter("chat_calls_errors_total", "Number of chat completion errors.", atomic.LoadUint64(&m.chatCallsErrors))
	counter("embed_calls_total", "Total number of embedding calls.", atomic.LoadUint64(&m.embedCallsTotal))
	counter("embed_calls_errors_total", "Number of embedding call errors.", atomic.LoadUint64(&m.embedCallsErrors))

	m.durationMu.Lock()
	searchDuration := m.searchDuration
	chatDuration := m.chatCallsDuration
	m.durationMu.Unlock()

	gauge("search_duration_seconds_total", "Total vector search duration.", searchDuration)
	gauge("chat_duration_seconds_total", "Total chat completion duration.", chatDuration)
	gauge("uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *Metrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	searchDuration := m.searchDuration
	chatDuration := m.chatCallsDuration
	m.durationMu.Unlock()

	searchTotal := atomic.LoadUint64(&m.searchTotal)
	avgSearchDuration := 0.0
	if searchTotal > 0 {
		avgSearchDuration = searchDuration / float64(searchTotal)
	}

	chatTotal := atomic.LoadUint64(&m.chatCallsTotal)
	avgChatDuration := 0.0
	if chatTotal > 0 {
		avgChatDuration = chatDuration / float64(chatTotal)
	}

	queriesTotal := atomic.LoadUint64(&m.queriesTotal)
	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheHitRate := 0.0
	if queriesTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(queriesTotal)
	}

	return map[string]interface{}{
		"uploads": map[string]interface{}{
			"total":  atomic.LoadUint64(&m.uploadsTotal),
			"errors": atomic.LoadUint64(&m.uploadsErrors),
		},
		"ingestion": map[string]interface{}{
			"started":        atomic.LoadUint64(&m.ingestsStarted),
			"completed":      atomic.LoadUint64(&m.ingestsCompleted),
			"failed":         atomic.LoadUint64(&m.ingestsFailed),
			"chunks_indexed": atomic.LoadUint64(&m.chunksIndexed),
		},
		"queries": map[string]interface{}{
			"total":          queriesTotal,
			"cache_hits":     cacheHits,
			"cache_hit_rate": cacheHitRate,
			"not_found":      atomic.LoadUint64(&m.queriesNotFound),
			"errors":         atomic.LoadUint64(&m.queriesErrors),
		},
		"search": map[string]interface{}{
			"total":               searchTotal,
			"total_duration_secs": searchDuration,
			"avg_duration_secs":   avgSearchDuration,
			"errors":              atomic.LoadUint64(&m.searchErrors),
		},
		"llm": map[string]interface{}{
			"chat_calls":          chatTotal,
			"chat_duration_secs":  chatDuration,
			"chat_avg_secs":       avgChatDuration,
			"chat_errors":         atomic.LoadUint64(&m.chatCallsErrors),
			"embed_calls":         atomic.LoadUint64(&m.embedCallsTotal),
			"embed_errors":        atomic.LoadUint64(&m.embedCallsErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.uploadsTotal, 0)
	atomic.StoreUint64(&m.uploadsErrors, 0)
	atomic.StoreUint64(&m.ingestsStarted, 0)
	atomic.StoreUint64(&m.ingestsCompleted, 0)
	atomic.StoreUint64(&m.ingestsFailed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesNotFound, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.searchTotal, 0)
	atomic.StoreUint64(&m.searchErrors, 0)
	atomic.StoreUint64(&m.chatCallsTotal, 0)
	atomic.StoreUint64(&m.chatCallsErrors, 0)
	atomic.StoreUint64(&m.embedCallsTotal, 0)
	atomic.StoreUint64(&m.embedCallsErrors, 0)

	m.durationMu.Lock()
	m.searchDuration = 0
	m.chatCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
