package workload

import (
	"math/rand/v2"
	"sort"
)

const (
	// LargePrime は mixed プリセットで使う 64bit の素数
	LargePrime uint64 = 9446744074328015681
	// LargeComposite は mixed プリセットで使う 64bit の合成数
	LargeComposite uint64 = 9446744074709551617
)

// Preset は名前付きの入力生成器
type Preset struct {
	Name        string
	Description string
	Generate    func(size int) []uint64
}

// Mixed は6件に1件が大きな素数、残りが大きな合成数の入力を返す
func Mixed(size int) []uint64 {
	tasks := make([]uint64, max(size, 0))
	for i := range tasks {
		if i%6 == 0 {
			tasks[i] = LargePrime
			continue
		}
		tasks[i] = LargeComposite
	}
	return tasks
}

// Small は 0 から size-1 までの整数を返す
func Small(size int) []uint64 {
	tasks := make([]uint64, max(size, 0))
	for i := range tasks {
		tasks[i] = uint64(i)
	}
	return tasks
}

// Random は固定シードの擬似乱数（32bit範囲）を返す
func Random(size int) []uint64 {
	r := rand.New(rand.NewPCG(0x5eed, uint64(max(size, 0))))
	tasks := make([]uint64, max(size, 0))
	for i := range tasks {
		tasks[i] = uint64(r.Uint32())
	}
	return tasks
}

var presets = map[string]Preset{
	"mixed": {
		Name:        "mixed",
		Description: "1 in 6 large 64-bit primes, the rest large composites (slow)",
		Generate:    Mixed,
	},
	"small": {
		Name:        "small",
		Description: "consecutive integers starting at 0",
		Generate:    Small,
	},
	"random": {
		Name:        "random",
		Description: "seeded pseudo-random 32-bit integers",
		Generate:    Random,
	},
}

// GetPreset は名前からプリセットを取得する
func GetPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
