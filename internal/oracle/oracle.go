// Package oracle provides the primality test used by the pool.
//
// The test is a pure function of its input and holds no shared state, so it
// may be called from any number of goroutines at once.
package oracle

// Task は素数判定の対象となる整数
type Task = uint64

// Func は素数判定関数
// 純粋関数であり、複数のゴルーチンから同時に呼ばれても安全であること
type Func func(n Task) bool

// IsPrime は n が素数かどうかを試し割りで判定する
func IsPrime(n Task) bool {
	if n < 2 {
		return false
	}
	if n < 4 {
		return true
	}
	if n%2 == 0 {
		return false
	}

	// i <= n/i は i*i <= n と同値で、オーバーフローしない
	for i := uint64(3); i <= n/i; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// Count は tasks のうち f が true を返す個数を逐次的に数える
func Count(tasks []Task, f Func) uint64 {
	var count uint64
	for _, t := range tasks {
		if f(t) {
			count++
		}
	}
	return count
}
