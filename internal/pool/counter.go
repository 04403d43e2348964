package pool

import "sync/atomic"

// Counter は全ワーカーから加算される素数カウンタ
type Counter struct {
	n atomic.Uint64
}

// Inc は1加算する
func (c *Counter) Inc() {
	c.n.Add(1)
}

// Load は現在値を返す
func (c *Counter) Load() uint64 {
	return c.n.Load()
}
