package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/config"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/scheduler"
)

func newDaemonCommand(appName, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run sync on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*appName, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runDaemon(cmd.Context(), a)
		},
	}
}

func runDaemon(ctx context.Context, a *app) error {
	if !a.auth.IsSignedIn() {
		return fmt.Errorf("not signed in; run '%s login' first", a.appName)
	}

	opts, err := config.ResolveSyncOptions(a.cfg)
	if err != nil {
		return fmt.Errorf("resolve sync options: %w", err)
	}

	sched := scheduler.New(opts.Schedule, nil, a.logger)

	localRoots := make([]string, 0, len(opts.SyncDirectories))
	for _, dir := range opts.SyncDirectories {
		localRoots = append(localRoots, dir.LocalRoot)
	}
	if err := sched.Watch(localRoots); err != nil {
		a.logger.WithError(err).Warn("filesystem watch disabled")
	}

	// The scheduler drains its pending queue on every tick, so the job
	// re-enqueues itself after each run to keep firing on the schedule.
	var syncJob scheduler.Job
	syncJob = scheduler.Job{
		Name: "sync",
		Run: func(ctx context.Context) error {
			err := runSync(ctx, a)
			sched.Enqueue(syncJob)
			return err
		},
	}
	sched.Enqueue(syncJob)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("daemon started")
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	a.logger.Info("daemon stopped")
	return nil
}
