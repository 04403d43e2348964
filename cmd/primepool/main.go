// Package main is the entry point for primepool.
package main

import (
	"os"

	"primepool/internal/logger"
)

var (
	version = "dev"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error("", "%v", err)
		os.Exit(1)
	}
}
