package main

import (
	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/kubev2v/fold-planner/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "fold-api",
	Short: "fold-api tracks AlphaFold prediction jobs.",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tokenCmd)
}

// initLogger replaces the zap globals with the logger described by cfg. The returned
// function restores the previous globals and flushes the logger.
func initLogger(cfg *config.Config) func() {
	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel), cfg.Service.LogFormat)
	undo := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		undo()
	}
}
