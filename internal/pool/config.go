package pool

import (
	"fmt"
	"runtime"
	"time"

	"primepool/internal/events"
	"primepool/internal/metrics"
	"primepool/internal/oracle"
)

// Observer は各タスクの判定結果を受け取るコールバック
// ワーカーのゴルーチンから同時に呼ばれる
type Observer func(worker int, task oracle.Task, prime bool)

// IdlePolicy は空振りポーリング時の待ち方
type IdlePolicy struct {
	Spins    int           // スリープ前に runtime.Gosched で譲る回数
	MinSleep time.Duration // 最初のスリープ時間
	MaxSleep time.Duration // スリープ上限（0で常にスピン）
}

// DefaultIdlePolicy はデフォルトの待ち方を返す
func DefaultIdlePolicy() IdlePolicy {
	return IdlePolicy{
		Spins:    64,
		MinSleep: 10 * time.Microsecond,
		MaxSleep: time.Millisecond,
	}
}

// SpinIdlePolicy はスリープしない純粋なビジーウェイトを返す
func SpinIdlePolicy() IdlePolicy {
	return IdlePolicy{}
}

// Config はプールの設定
type Config struct {
	Workers  int         // ワーカー数（0でCPU数）
	Oracle   oracle.Func // 素数判定関数（nilで oracle.IsPrime）
	Idle     IdlePolicy
	Metrics  *metrics.Metrics // 任意
	Events   *events.Bus      // 任意
	Observer Observer         // 任意
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Oracle:  oracle.IsPrime,
		Idle:    DefaultIdlePolicy(),
	}
}

// normalize は設定を検証し、未指定の項目を埋める
func (c Config) normalize() (Config, error) {
	if c.Workers < 0 {
		return c, fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Oracle == nil {
		c.Oracle = oracle.IsPrime
	}
	if c.Idle.Spins < 0 {
		return c, fmt.Errorf("%w: idle spins must be non-negative, got %d", ErrInvalidConfig, c.Idle.Spins)
	}
	if c.Idle.MinSleep < 0 || c.Idle.MaxSleep < 0 {
		return c, fmt.Errorf("%w: idle sleeps must be non-negative", ErrInvalidConfig)
	}
	if c.Idle.MaxSleep > 0 && c.Idle.MinSleep > c.Idle.MaxSleep {
		return c, fmt.Errorf("%w: idle min_sleep %v exceeds max_sleep %v",
			ErrInvalidConfig, c.Idle.MinSleep, c.Idle.MaxSleep)
	}
	return c, nil
}
