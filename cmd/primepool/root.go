package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"primepool/internal/config"
	"primepool/internal/logger"
	"primepool/internal/workload"
)

const envPrefix = "PRIMEPOOL"

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "primepool",
		Short:         "Check integers for primality on a slot-based worker pool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return v.BindPFlags(cmd.InheritedFlags())
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (YAML/JSON)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stdout")

	rootCmd.AddCommand(newRunCommand(v))
	rootCmd.AddCommand(newPresetsCommand())

	return rootCmd
}

// loadConfig はファイル→環境変数→フラグの順に設定を組み立てる
func loadConfig(v *viper.Viper) (*config.FileConfig, error) {
	cfg := config.Default()

	if path := v.GetString("config"); path != "" {
		fileConfig, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
		cfg = fileConfig
	}

	cfg.ApplyOverrides(v)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setupLogging はログレベルと出力先を設定する
// 返り値の関数でファイルを閉じる
func setupLogging(cfg config.LogConfig) (func(), error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.Default.SetLevel(level)

	if cfg.File == "" {
		return func() {}, nil
	}

	w := logger.NewFileWriter(cfg.File, cfg.MaxSizeMB)
	logger.Default.SetOutput(w)
	return func() {
		logger.Default.SetOutput(os.Stdout)
		_ = w.Close()
	}, nil
}

// signalContext は SIGINT/SIGTERM でキャンセルされるコンテキストを返す
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			logger.Info("", "Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List workload presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available workload presets:")
			fmt.Fprintln(out)
			for _, name := range workload.ListPresets() {
				p, _ := workload.GetPreset(name)
				fmt.Fprintf(out, "  %-10s %s\n", p.Name, p.Description)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Example: primepool run --preset small --size 1000")
		},
	}
}
