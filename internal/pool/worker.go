package pool

import (
	"time"

	"primepool/internal/events"
	"primepool/internal/logger"
	"primepool/internal/oracle"
)

// worker はスロット i 専用のポーリングループ
func (p *Pool) worker(i int) (err error) {
	name := events.WorkerName(i)
	var current oracle.Task
	processed := 0
	clean := false

	defer func() {
		if r := recover(); r != nil {
			err = &WorkerError{Worker: i, Task: current, Cause: r}
		} else if !clean {
			// runtime.Goexit はここに来るが recover では捕まらない
			err = &WorkerError{Worker: i, Task: current, Cause: ErrWorkerExited}
		}
		if err != nil {
			logger.Error(name, "Worker failed: %v", err)
			if p.fail != nil {
				p.fail(err)
			}
		}
		p.publish(events.NewWorkerExitedEvent(i, err))
	}()

	idle := newIdler(p.idle, p.metrics)
	defer idle.Flush()

	for {
		// フラグはスロットより先に読む
		stopping := p.shutdown.Load()

		if task, ok := p.slots.TryTake(i); ok {
			current = task
			p.process(i, task)
			processed++
			idle.Reset()
			continue
		}

		if stopping {
			logger.Debug(name, "Worker exiting after %d tasks", processed)
			clean = true
			return nil
		}

		idle.Wait()
	}
}

// process は1タスクを判定して結果を集計する
func (p *Pool) process(i int, task oracle.Task) {
	start := time.Now()
	prime := p.oracle(task)
	if prime {
		p.primes.Inc()
		logger.Debug(events.WorkerName(i), "%d is PRIME.", task)
	}

	if p.metrics != nil {
		p.metrics.RecordProcessed(time.Since(start), prime)
	}
	if p.observer != nil {
		p.observer(i, task, prime)
	}
	p.publish(events.NewTaskProcessedEvent(i, task, prime))
}
