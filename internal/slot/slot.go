package slot

import (
	"sync/atomic"

	"primepool/internal/oracle"
)

// cell は1スロット分の状態
// nil が空、非nil が保留中のタスクを表す
type cell struct {
	task atomic.Pointer[oracle.Task]
	// 隣接スロットとのフォルスシェアリングを避ける
	_ [56]byte
}

// Array はワーカーごとのスロットの固定長配列
type Array struct {
	cells []cell
}

// New は n 個の空スロットを持つ Array を作成する
func New(n int) *Array {
	if n < 0 {
		n = 0
	}
	return &Array{cells: make([]cell, n)}
}

// Len はスロット数を返す
func (a *Array) Len() int {
	return len(a.cells)
}

// TrySet はスロット i が空の場合のみタスクを格納する
// 既に埋まっていれば何もせず false を返す
func (a *Array) TrySet(i int, t oracle.Task) bool {
	return a.cells[i].task.CompareAndSwap(nil, &t)
}

// TryTake はスロット i のタスクを取り出して空にする
// 空だった場合は false を返す
func (a *Array) TryTake(i int) (oracle.Task, bool) {
	p := a.cells[i].task.Swap(nil)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Occupied はスロット i にタスクがあるかを返す
// 観測用であり、返った時点で状態が変わっている可能性がある
func (a *Array) Occupied(i int) bool {
	return a.cells[i].task.Load() != nil
}

// Pending は現在埋まっているスロット数を返す
func (a *Array) Pending() int {
	n := 0
	for i := range a.cells {
		if a.cells[i].task.Load() != nil {
			n++
		}
	}
	return n
}
