package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"primepool/internal/logger"
	"primepool/internal/pool"
	"primepool/internal/workload"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool     PoolConfig     `yaml:"pool" json:"pool"`
	Workload WorkloadConfig `yaml:"workload" json:"workload"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// PoolConfig はプール設定
type PoolConfig struct {
	Workers int        `yaml:"workers" json:"workers"`
	Idle    IdleConfig `yaml:"idle" json:"idle"`
}

// IdleConfig は空振りポーリング時の待ち方
type IdleConfig struct {
	BusyWait bool   `yaml:"busy_wait" json:"busy_wait"`
	Spins    *int   `yaml:"spins" json:"spins"` // nilで既定値、0も指定できる
	MinSleep string `yaml:"min_sleep" json:"min_sleep"`
	MaxSleep string `yaml:"max_sleep" json:"max_sleep"`
}

// WorkloadConfig は入力設定
type WorkloadConfig struct {
	Preset string `yaml:"preset" json:"preset"`
	Size   int    `yaml:"size" json:"size"`
	File   string `yaml:"file" json:"file"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
}

// MetricsConfig はメトリクス公開設定
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default はデフォルト設定を返す
func Default() *FileConfig {
	return &FileConfig{
		Workload: WorkloadConfig{
			Preset: "mixed",
			Size:   60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return config, nil
}

// ApplyOverrides はフラグと環境変数で明示された値だけを上書きする
// キーはCLIフラグ名（workers, preset, size, input, log-level, log-file, metrics-addr, busy-wait）
func (f *FileConfig) ApplyOverrides(v *viper.Viper) {
	if v.IsSet("workers") {
		f.Pool.Workers = v.GetInt("workers")
	}
	if v.IsSet("busy-wait") {
		f.Pool.Idle.BusyWait = v.GetBool("busy-wait")
	}
	if v.IsSet("preset") {
		f.Workload.Preset = v.GetString("preset")
	}
	if v.IsSet("size") {
		f.Workload.Size = v.GetInt("size")
	}
	if v.IsSet("input") {
		f.Workload.File = v.GetString("input")
	}
	if v.IsSet("log-level") {
		f.Log.Level = v.GetString("log-level")
	}
	if v.IsSet("log-file") {
		f.Log.File = v.GetString("log-file")
	}
	if v.IsSet("metrics-addr") {
		f.Metrics.Addr = v.GetString("metrics-addr")
	}
}

// ToPoolConfig はFileConfigをpool.Configに変換する
func (f *FileConfig) ToPoolConfig() (pool.Config, error) {
	config := pool.DefaultConfig()

	if f.Pool.Workers > 0 {
		config.Workers = f.Pool.Workers
	}

	idle := f.Pool.Idle
	if idle.BusyWait {
		config.Idle = pool.SpinIdlePolicy()
		return config, nil
	}
	if idle.Spins != nil {
		config.Idle.Spins = *idle.Spins
	}
	if idle.MinSleep != "" {
		d, err := time.ParseDuration(idle.MinSleep)
		if err != nil {
			return config, fmt.Errorf("invalid idle min_sleep: %w", err)
		}
		config.Idle.MinSleep = d
	}
	if idle.MaxSleep != "" {
		d, err := time.ParseDuration(idle.MaxSleep)
		if err != nil {
			return config, fmt.Errorf("invalid idle max_sleep: %w", err)
		}
		config.Idle.MaxSleep = d

		// max_sleep だけ指定された場合、既定の min_sleep を上限に合わせる
		if idle.MinSleep == "" && config.Idle.MinSleep > d {
			config.Idle.MinSleep = d
		}
	}

	return config, nil
}

// Tasks は設定に従って入力タスクを用意する
// file が指定されていればプリセットより優先する
func (f *FileConfig) Tasks() ([]uint64, error) {
	if f.Workload.File != "" {
		return workload.ReadFile(f.Workload.File)
	}

	preset, ok := workload.GetPreset(f.Workload.Preset)
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.Workload.Preset, workload.ListPresets())
	}
	return preset.Generate(f.Workload.Size), nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must be non-negative")
	}

	if f.Pool.Idle.Spins != nil && *f.Pool.Idle.Spins < 0 {
		return fmt.Errorf("pool.idle.spins must be non-negative")
	}

	if f.Workload.Size < 0 {
		return fmt.Errorf("workload.size must be non-negative")
	}

	if f.Workload.File == "" {
		if _, ok := workload.GetPreset(f.Workload.Preset); !ok {
			return fmt.Errorf("workload.preset %q is unknown", f.Workload.Preset)
		}
	}

	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if f.Log.MaxSizeMB < 0 {
		return fmt.Errorf("log.max_size_mb must be non-negative")
	}

	return nil
}
