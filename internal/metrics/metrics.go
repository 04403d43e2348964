package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Metrics はプールのメトリクスを収集する
type Metrics struct {
	tasksAssigned  atomic.Uint64
	tasksProcessed atomic.Uint64
	primesFound    atomic.Uint64
	idlePolls      atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	latencies         []time.Duration
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return &Metrics{
		startTime:         time.Now(),
		latencies:         make([]time.Duration, 0, defaultMaxLatencySamples),
		maxLatencySamples: defaultMaxLatencySamples,
	}
}

// RecordAssigned はスロットへのタスク割り当てを記録する
func (m *Metrics) RecordAssigned() {
	m.tasksAssigned.Add(1)
}

// RecordProcessed はタスクの判定完了を記録する
func (m *Metrics) RecordProcessed(latency time.Duration, prime bool) {
	m.tasksProcessed.Add(1)
	if prime {
		m.primesFound.Add(1)
	}
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// AddIdlePolls は空振りしたポーリング n 回分を記録する
// ワーカーはローカルに数えてからまとめて呼ぶ
func (m *Metrics) AddIdlePolls(n uint64) {
	m.idlePolls.Add(n)
}

// TasksAssigned は割り当て済みタスク数を返す
func (m *Metrics) TasksAssigned() uint64 {
	return m.tasksAssigned.Load()
}

// TasksProcessed は判定済みタスク数を返す
func (m *Metrics) TasksProcessed() uint64 {
	return m.tasksProcessed.Load()
}

// PrimesFound は素数と判定された数を返す
func (m *Metrics) PrimesFound() uint64 {
	return m.primesFound.Load()
}

// IdlePolls は空振りポーリング数を返す
func (m *Metrics) IdlePolls() uint64 {
	return m.idlePolls.Load()
}

// Throughput は開始からの平均処理タスク数/秒を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	elapsed := time.Since(m.startTime).Seconds()
	m.mu.RUnlock()
	if elapsed == 0 {
		return 0
	}
	return float64(m.tasksProcessed.Load()) / elapsed
}

// AverageLatency は判定1回あたりの平均時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.tasksProcessed.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99レイテンシを返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Reset はカウンタとサンプルを初期化する
func (m *Metrics) Reset() {
	m.tasksAssigned.Store(0)
	m.tasksProcessed.Store(0)
	m.primesFound.Store(0)
	m.idlePolls.Store(0)
	m.totalLatencyNs.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TasksAssigned  uint64        `json:"tasks_assigned"`
	TasksProcessed uint64        `json:"tasks_processed"`
	PrimesFound    uint64        `json:"primes_found"`
	IdlePolls      uint64        `json:"idle_polls"`
	Throughput     float64       `json:"throughput"`
	AverageLatency time.Duration `json:"average_latency_ns"`
	P99Latency     time.Duration `json:"p99_latency_ns"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	start := m.startTime
	m.mu.RUnlock()

	return Snapshot{
		TasksAssigned:  m.TasksAssigned(),
		TasksProcessed: m.TasksProcessed(),
		PrimesFound:    m.PrimesFound(),
		IdlePolls:      m.IdlePolls(),
		Throughput:     m.Throughput(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		Elapsed:        time.Since(start),
	}
}
