package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/api"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/config"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/container"
)

// sweepCmd sweep 子命令,周期扫描逾期任务
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the overdue task sweeper",
	Long: `Periodically scan for pending tasks past their due date, mark them
expired and re-dispatch replacement tasks. Run alongside the API server
or as a standalone worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := api.NewLoggerFromConfig(&cfg.Log)

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		once, _ := cmd.Flags().GetBool("once")
		interval := time.Duration(cfg.Sweep.Interval) * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		run := func() {
			handled, err := ctr.WorkflowSvc.ExpireOverdueTasks(ctx, cfg.Sweep.BatchSize)
			if err != nil {
				logger.WithError(err).Error("overdue task sweep failed")
				return
			}
			if handled > 0 {
				logger.WithField("handled", handled).Info("overdue tasks expired")
			}
		}

		if once {
			run()
			return nil
		}

		logger.WithField("interval", interval.String()).Info("sweeper starting")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case <-ticker.C:
				run()
			case <-quit:
				logger.Info("sweeper exiting")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Bool("once", false, "Run a single sweep and exit")
}
