package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"primepool/internal/backlog"
	"primepool/internal/events"
	"primepool/internal/logger"
	"primepool/internal/metrics"
	"primepool/internal/oracle"
	"primepool/internal/slot"
)

// Result はプール実行結果
type Result struct {
	Primes   uint64
	Tasks    int
	Workers  int
	Duration time.Duration
}

// Pool はスロット方式のワーカープール
// 1回の Run のための状態をすべて保持する
type Pool struct {
	workers  int
	oracle   oracle.Func
	idle     IdlePolicy
	metrics  *metrics.Metrics
	eventBus *events.Bus
	observer Observer

	slots    *slot.Array
	shutdown atomic.Bool
	primes   Counter
	ran      atomic.Bool

	// fail はワーカーの異常終了を dispatch に伝える
	// Goexit では errgroup に戻り値が届かないため別経路で通知する
	fail context.CancelCauseFunc
}

// New は新しいプールを作成する
// ゴルーチンは Run まで起動しない
func New(cfg Config) (*Pool, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Pool{
		workers:  cfg.Workers,
		oracle:   cfg.Oracle,
		idle:     cfg.Idle,
		metrics:  cfg.Metrics,
		eventBus: cfg.Events,
		observer: cfg.Observer,
		slots:    slot.New(cfg.Workers),
	}, nil
}

// Run は tasks を workerCount 個のワーカーで判定し、素数の個数を返す
func Run(ctx context.Context, tasks []oracle.Task, workerCount int) (uint64, error) {
	return RunFunc(ctx, tasks, workerCount, oracle.IsPrime)
}

// RunFunc は判定関数を差し替えた Run
func RunFunc(ctx context.Context, tasks []oracle.Task, workerCount int, f oracle.Func) (uint64, error) {
	if workerCount < 1 {
		return 0, fmt.Errorf("%w: worker count must be at least 1, got %d", ErrInvalidConfig, workerCount)
	}

	cfg := DefaultConfig()
	cfg.Workers = workerCount
	if f != nil {
		cfg.Oracle = f
	}
	p, err := New(cfg)
	if err != nil {
		return 0, err
	}

	result, err := p.Run(ctx, tasks)
	if err != nil {
		return 0, err
	}
	return result.Primes, nil
}

// Run はすべてのタスクを処理し終えるまでブロックする
// ワーカーは必ず join してから戻る
func (p *Pool) Run(ctx context.Context, tasks []oracle.Task) (*Result, error) {
	if !p.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	start := time.Now()
	pending := backlog.New(tasks)

	logger.Info("", "Pool started with %d workers, %d tasks", p.workers, pending.Len())

	g, gctx := errgroup.WithContext(ctx)
	fctx, fail := context.WithCancelCause(gctx)
	defer fail(nil)
	p.fail = fail

	for i := range p.workers {
		g.Go(func() error {
			return p.worker(i)
		})
	}

	joined := false
	defer func() {
		// dispatch がパニックした場合でもワーカーを残さない
		if !joined {
			p.raiseShutdown()
			_ = g.Wait()
		}
	}()

	dispatchErr := p.dispatch(fctx, pending)
	p.raiseShutdown()

	waitErr := g.Wait()
	joined = true

	var workerErr *WorkerError
	if waitErr == nil && errors.As(context.Cause(fctx), &workerErr) {
		waitErr = workerErr
	}

	if waitErr != nil {
		logger.Error("", "Pool failed: %v", waitErr)
		return nil, waitErr
	}
	if dispatchErr != nil {
		logger.Warn("", "Pool aborted with %d tasks undispatched: %v", pending.Len(), dispatchErr)
		return nil, fmt.Errorf("pool run aborted: %w", dispatchErr)
	}

	result := &Result{
		Primes:   p.primes.Load(),
		Tasks:    len(tasks),
		Workers:  p.workers,
		Duration: time.Since(start),
	}

	logger.Info("", "Pool finished: %d primes in %d tasks (%v)",
		result.Primes, result.Tasks, result.Duration.Round(time.Millisecond))

	return result, nil
}

// dispatch はバックログが空になるまで先頭タスクを空きスロットに割り当てる
// ctx が終了した場合（呼び出し元のキャンセル、またはワーカーの異常終了）は中断する
func (p *Pool) dispatch(ctx context.Context, pending *backlog.Backlog[oracle.Task]) error {
	idle := newIdler(p.idle, p.metrics)
	defer idle.Flush()

	for !pending.IsEmpty() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		task, _ := pending.Front()
		if i, ok := p.assign(task); ok {
			pending.Pop()
			if p.metrics != nil {
				p.metrics.RecordAssigned()
			}
			p.publish(events.NewTaskAssignedEvent(i, task))
			idle.Reset()
			continue
		}

		idle.Wait()
	}

	return nil
}

// assign はスロットを0番から走査し、最初の空きスロットに task を入れる
func (p *Pool) assign(task oracle.Task) (int, bool) {
	for i := 0; i < p.slots.Len(); i++ {
		if p.slots.TrySet(i, task) {
			return i, true
		}
	}
	return -1, false
}

// raiseShutdown は終了フラグを立てる（2回目以降は何もしない）
func (p *Pool) raiseShutdown() {
	if p.shutdown.CompareAndSwap(false, true) {
		logger.Debug("", "Shutdown raised")
		p.publish(events.NewShutdownEvent())
	}
}

func (p *Pool) publish(ev events.Event) {
	if p.eventBus != nil {
		p.eventBus.Publish(ev)
	}
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.workers
}

// Primes は現時点の素数カウントを返す
func (p *Pool) Primes() uint64 {
	return p.primes.Load()
}

// PendingSlots はタスクが入ったままのスロット数を返す
func (p *Pool) PendingSlots() int {
	return p.slots.Pending()
}

// ShuttingDown は終了フラグが立っているかを返す
func (p *Pool) ShuttingDown() bool {
	return p.shutdown.Load()
}
