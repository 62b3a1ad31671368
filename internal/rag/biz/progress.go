package biz

import "sync"

// ProgressFailed 标记摄取任务失败的进度值。
const ProgressFailed = -1.0

// ProgressStore 记录后台摄取任务的进度，file_id 到进度值的映射。
// 单个写入方（后台任务）与多个并发读取方（HTTP 轮询）之间以互斥锁保护。
// 进度只保存在内存中，进程重启后丢失。
type ProgressStore struct {
	mu       sync.Mutex
	progress map[string]float64
}

// NewProgressStore 创建进度存储。
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		progress: make(map[string]float64),
	}
}

// Set 写入进度值。
func (s *ProgressStore) Set(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[key] = value
}

// Get 读取进度值，键不存在时返回 def。
func (s *ProgressStore) Get(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.progress[key]; ok {
		return v
	}
	return def
}

// Lookup 读取进度值并报告键是否存在。
func (s *ProgressStore) Lookup(key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.progress[key]
	return v, ok
}

// Delete 删除进度记录。
func (s *ProgressStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, key)
}

// Len 返回当前跟踪的任务数。
func (s *ProgressStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.progress)
}
