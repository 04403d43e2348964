package workload

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadFile は1行1整数のファイルを読み込む
// 空行と '#' で始まる行は無視する
func ReadFile(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workload file: %w", err)
	}
	defer f.Close()

	var tasks []uint64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid integer %q: %w", path, line, text, err)
		}
		tasks = append(tasks, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workload file: %w", err)
	}

	return tasks, nil
}
