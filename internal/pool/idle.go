package pool

import (
	"runtime"
	"time"

	"github.com/jpillora/backoff"

	"primepool/internal/metrics"
)

// idler は1つのゴルーチン専用の空振り時の待機状態
// 空振り回数はローカルに数え、Reset/Flush でまとめて metrics に加算する
type idler struct {
	limit   int
	spins   int
	sleep   *backoff.Backoff
	polls   uint64
	metrics *metrics.Metrics
}

func newIdler(p IdlePolicy, m *metrics.Metrics) *idler {
	i := &idler{limit: p.Spins, metrics: m}
	if p.MaxSleep > 0 {
		minSleep := p.MinSleep
		if minSleep <= 0 {
			minSleep = p.MaxSleep
		}
		i.sleep = &backoff.Backoff{
			Min:    minSleep,
			Max:    p.MaxSleep,
			Factor: 2,
		}
	}
	return i
}

// Wait は1回分待機する
func (i *idler) Wait() {
	i.polls++
	if i.spins < i.limit || i.sleep == nil {
		i.spins++
		runtime.Gosched()
		return
	}
	time.Sleep(i.sleep.Duration())
}

// Reset は仕事が見つかったときに待機状態を戻す
func (i *idler) Reset() {
	i.Flush()
	i.spins = 0
	if i.sleep != nil {
		i.sleep.Reset()
	}
}

// Flush はたまった空振り回数を metrics に反映する
func (i *idler) Flush() {
	if i.polls == 0 {
		return
	}
	if i.metrics != nil {
		i.metrics.AddIdlePolls(i.polls)
	}
	i.polls = 0
}
