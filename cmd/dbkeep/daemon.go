package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbkeep/dbkeep/internal/scheduler"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled backups and cleanup",
	Long:  "Run backups and retention cleanup on cron schedules until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&cfg.BackupSchedule, "backup-schedule", "0 3 * * *", "Cron schedule for backups")
	daemonCmd.Flags().StringVar(&cfg.CleanupSchedule, "cleanup-schedule", "0 5 * * *", "Cron schedule for retention cleanup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	slog.Info("starting dbkeep daemon",
		"environment", cfg.Environment,
		"databases", cfg.Databases,
		"backup_schedule", cfg.BackupSchedule,
		"cleanup_schedule", cfg.CleanupSchedule,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// One job at a time: a cleanup must not race a backup run against
	// the same listing.
	var runMu sync.Mutex

	sched := scheduler.New()

	err = sched.AddJob("backup", cfg.BackupSchedule, func(jobCtx context.Context) {
		runMu.Lock()
		defer runMu.Unlock()

		if err := mgr.BackupAll(jobCtx); err != nil {
			slog.Error("scheduled backup failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	err = sched.AddJob("cleanup", cfg.CleanupSchedule, func(jobCtx context.Context) {
		runMu.Lock()
		defer runMu.Unlock()

		deleted, err := mgr.Cleanup(jobCtx)
		if err != nil {
			slog.Error("scheduled cleanup failed", "error", err)
			return
		}
		if deleted > 0 {
			slog.Info("scheduled cleanup done", "deleted", deleted)
		}
	})
	if err != nil {
		return err
	}

	sched.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	// Wait for a running job to finish
	<-sched.Stop().Done()

	slog.Info("daemon stopped")
	return nil
}
