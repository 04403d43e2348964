package pool

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primepool/internal/events"
	"primepool/internal/metrics"
	"primepool/internal/oracle"
)

// runWithin は f をタイムアウト付きで実行する
func runWithin(t *testing.T, d time.Duration, f func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not finish within %v", d)
	}
}

func randomTasks(r *rand.Rand, n int) []oracle.Task {
	tasks := make([]oracle.Task, n)
	for i := range tasks {
		tasks[i] = r.Uint64N(100000)
	}
	return tasks
}

func TestNewDefaults(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), p.NumWorkers())
	assert.False(t, p.ShuttingDown())
	assert.Equal(t, 0, p.PendingSlots())

	p, err = New(Config{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumWorkers())
}

func TestNewInvalidConfig(t *testing.T) {
	cases := []Config{
		{Workers: -1},
		{Workers: 2, Idle: IdlePolicy{Spins: -1}},
		{Workers: 2, Idle: IdlePolicy{MinSleep: -time.Millisecond}},
		{Workers: 2, Idle: IdlePolicy{MinSleep: time.Second, MaxSleep: time.Millisecond}},
	}

	for _, cfg := range cases {
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "config %+v", cfg)
	}
}

func TestRunConcreteScenario(t *testing.T) {
	tasks := []oracle.Task{4, 7, 9, 11, 15, 2}

	for range 200 {
		count, err := Run(context.Background(), tasks, 2)
		require.NoError(t, err)
		require.Equal(t, uint64(3), count)
	}
}

func TestRunZeroWorkers(t *testing.T) {
	var calls atomic.Int32
	counting := func(n oracle.Task) bool {
		calls.Add(1)
		return oracle.IsPrime(n)
	}

	count, err := RunFunc(context.Background(), []oracle.Task{2, 3, 5}, 0, counting)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, count)

	count, err = RunFunc(context.Background(), []oracle.Task{2, 3, 5}, -1, counting)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, count)

	_, err = New(Config{Workers: -3, Oracle: counting})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, calls.Load())
}

func TestRunFuncUsesOracle(t *testing.T) {
	var calls atomic.Int32
	counting := func(n oracle.Task) bool {
		calls.Add(1)
		return oracle.IsPrime(n)
	}

	count, err := RunFunc(context.Background(), []oracle.Task{2, 3, 4, 5}, 2, counting)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, int32(4), calls.Load())
}

func TestRunEmptyBacklog(t *testing.T) {
	runWithin(t, 5*time.Second, func() {
		count, err := Run(context.Background(), nil, 4)
		assert.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestRunFewerTasksThanWorkers(t *testing.T) {
	runWithin(t, 5*time.Second, func() {
		count, err := Run(context.Background(), []oracle.Task{7, 8}, 16)
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), count)
	})
}

func TestRunMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for _, m := range []int{0, 1, 3, 17, 500} {
		for _, n := range []int{1, 2, 3, 8, 16} {
			tasks := randomTasks(r, m)
			expected := oracle.Count(tasks, oracle.IsPrime)

			count, err := Run(context.Background(), tasks, n)
			require.NoError(t, err)
			assert.Equal(t, expected, count, "M=%d N=%d", m, n)
		}
	}
}

func TestRunSingleWorkerMatchesSequential(t *testing.T) {
	tasks := randomTasks(rand.New(rand.NewPCG(3, 4)), 300)

	type outcome struct {
		task  oracle.Task
		prime bool
	}
	var got []outcome
	p, err := New(Config{
		Workers: 1,
		Observer: func(worker int, task oracle.Task, prime bool) {
			got = append(got, outcome{task, prime})
		},
	})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, oracle.Count(tasks, oracle.IsPrime), result.Primes)

	// ワーカー1つならスロットも1つなので入力順に処理される
	require.Len(t, got, len(tasks))
	for i, task := range tasks {
		assert.Equal(t, task, got[i].task)
		assert.Equal(t, oracle.IsPrime(task), got[i].prime)
	}
}

func TestRunProcessesEachTaskExactlyOnce(t *testing.T) {
	const m = 1000
	tasks := make([]oracle.Task, m)
	for i := range tasks {
		tasks[i] = oracle.Task(i) // 0 も含む
	}

	for _, n := range []int{1, 2, 5, 13} {
		var mu sync.Mutex
		seen := make(map[oracle.Task]int, m)
		var primeCalls atomic.Uint64

		slow := func(task oracle.Task) bool {
			if rand.IntN(10) == 0 {
				time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
			} else if rand.IntN(2) == 0 {
				runtime.Gosched()
			}
			return oracle.IsPrime(task)
		}

		p, err := New(Config{
			Workers: n,
			Oracle:  slow,
			Observer: func(worker int, task oracle.Task, prime bool) {
				if prime {
					primeCalls.Add(1)
				}
				mu.Lock()
				seen[task]++
				mu.Unlock()
			},
		})
		require.NoError(t, err)

		result, err := p.Run(context.Background(), tasks)
		require.NoError(t, err)

		require.Len(t, seen, m, "N=%d", n)
		for _, task := range tasks {
			assert.Equal(t, 1, seen[task], "task %d with N=%d", task, n)
		}
		assert.Equal(t, primeCalls.Load(), result.Primes)
		assert.Equal(t, 0, p.PendingSlots())
	}
}

func TestRunDrainsLastTaskBeforeExit(t *testing.T) {
	// 最後のタスク割り当て直後に終了フラグが立っても取りこぼさない
	for range 1000 {
		count, err := Run(context.Background(), []oracle.Task{7}, 1)
		require.NoError(t, err)
		require.Equal(t, uint64(1), count)
	}
}

func TestRunLiveness(t *testing.T) {
	tasks := randomTasks(rand.New(rand.NewPCG(5, 6)), 5000)
	expected := oracle.Count(tasks, oracle.IsPrime)

	runWithin(t, 30*time.Second, func() {
		count, err := Run(context.Background(), tasks, 4)
		assert.NoError(t, err)
		assert.Equal(t, expected, count)
	})
}

func TestRunSpinIdlePolicy(t *testing.T) {
	tasks := randomTasks(rand.New(rand.NewPCG(7, 8)), 200)

	p, err := New(Config{Workers: 3, Idle: SpinIdlePolicy()})
	require.NoError(t, err)

	runWithin(t, 10*time.Second, func() {
		result, err := p.Run(context.Background(), tasks)
		assert.NoError(t, err)
		if assert.NotNil(t, result) {
			assert.Equal(t, oracle.Count(tasks, oracle.IsPrime), result.Primes)
		}
	})
}

func TestRunTwice(t *testing.T) {
	p, err := New(Config{Workers: 2})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []oracle.Task{2, 3})
	require.NoError(t, err)
	assert.True(t, p.ShuttingDown())

	_, err = p.Run(context.Background(), []oracle.Task{2, 3})
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRunWorkerPanic(t *testing.T) {
	faulty := func(n oracle.Task) bool {
		if n == 13 {
			panic("oracle exploded")
		}
		return oracle.IsPrime(n)
	}

	tasks := make([]oracle.Task, 200)
	for i := range tasks {
		tasks[i] = oracle.Task(i)
	}

	p, err := New(Config{Workers: 4, Oracle: faulty})
	require.NoError(t, err)

	runWithin(t, 10*time.Second, func() {
		result, err := p.Run(context.Background(), tasks)
		assert.Nil(t, result)

		var werr *WorkerError
		if assert.ErrorAs(t, err, &werr) {
			assert.Equal(t, oracle.Task(13), werr.Task)
			assert.Equal(t, "oracle exploded", werr.Cause)
		}
	})
}

func TestRunAllWorkersPanic(t *testing.T) {
	boom := errors.New("boom")
	faulty := func(oracle.Task) bool { panic(boom) }

	p, err := New(Config{Workers: 2, Oracle: faulty})
	require.NoError(t, err)

	tasks := make([]oracle.Task, 100)
	runWithin(t, 10*time.Second, func() {
		_, err := p.Run(context.Background(), tasks)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRunWorkerGoexit(t *testing.T) {
	exiting := func(n oracle.Task) bool {
		if n == 9 {
			runtime.Goexit()
		}
		return oracle.IsPrime(n)
	}

	for _, workers := range []int{1, 2} {
		runWithin(t, 10*time.Second, func() {
			count, err := RunFunc(context.Background(), []oracle.Task{4, 9, 7, 11}, workers, exiting)
			assert.Zero(t, count, "workers=%d", workers)
			assert.ErrorIs(t, err, ErrWorkerExited, "workers=%d", workers)

			var werr *WorkerError
			if assert.ErrorAs(t, err, &werr, "workers=%d", workers) {
				assert.Equal(t, oracle.Task(9), werr.Task)
			}
		})
	}
}

func TestRunContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runWithin(t, 5*time.Second, func() {
		count, err := Run(ctx, []oracle.Task{2, 3, 5, 7}, 2)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, count)
	})
}

func TestRunContextCanceledMidRun(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	blocking := func(n oracle.Task) bool {
		started.Add(1)
		<-release
		return oracle.IsPrime(n)
	}

	p, err := New(Config{Workers: 2, Oracle: blocking})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, make([]oracle.Task, 50))
		errCh <- err
	}()

	require.Eventually(t, func() bool { return started.Load() == 2 }, 5*time.Second, time.Millisecond)
	cancel()
	close(release)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunWithMetricsAndEvents(t *testing.T) {
	tasks := randomTasks(rand.New(rand.NewPCG(9, 10)), 100)
	const workers = 3

	m := metrics.New()
	bus := events.NewBusWithBuffer(4 * len(tasks))
	ch := bus.Subscribe()

	p, err := New(Config{Workers: workers, Metrics: m, Events: bus})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, uint64(len(tasks)), m.TasksAssigned())
	assert.Equal(t, uint64(len(tasks)), m.TasksProcessed())
	assert.Equal(t, result.Primes, m.PrimesFound())
	assert.Equal(t, len(tasks), result.Tasks)
	assert.Equal(t, workers, result.Workers)

	bus.Close()
	counts := make(map[events.EventType]int)
	var primes uint64
	for ev := range ch {
		counts[ev.Type]++
		if ev.Type == events.EventTaskProcessed && ev.Data.Prime {
			primes++
		}
		if ev.Type == events.EventWorkerExited {
			assert.Empty(t, ev.Data.Error)
		}
	}

	assert.Equal(t, len(tasks), counts[events.EventTaskAssigned])
	assert.Equal(t, len(tasks), counts[events.EventTaskProcessed])
	assert.Equal(t, 1, counts[events.EventShutdown])
	assert.Equal(t, workers, counts[events.EventWorkerExited])
	assert.Equal(t, result.Primes, primes)
	assert.Zero(t, bus.Dropped())
}

func TestWorkerErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	assert.ErrorIs(t, &WorkerError{Worker: 1, Task: 9, Cause: cause}, cause)
	assert.NoError(t, (&WorkerError{Cause: "not an error"}).Unwrap())
	assert.Contains(t, (&WorkerError{Worker: 2, Task: 9, Cause: "x"}).Error(), "worker 2 failed on task 9")
}

func BenchmarkRun(b *testing.B) {
	tasks := randomTasks(rand.New(rand.NewPCG(11, 12)), 1000)

	b.ResetTimer()
	for range b.N {
		if _, err := Run(context.Background(), tasks, 4); err != nil {
			b.Fatal(err)
		}
	}
}
