package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/config"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

func newSyncCommand(appName, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass over every configured directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*appName, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runSync(cmd.Context(), a)
		},
	}
}

func runSync(ctx context.Context, a *app) error {
	if !a.auth.IsSignedIn() {
		return fmt.Errorf("not signed in; run '%s login' first", a.appName)
	}

	opts, err := config.ResolveSyncOptions(a.cfg)
	if err != nil {
		return fmt.Errorf("resolve sync options: %w", err)
	}
	if len(opts.SyncDirectories) == 0 {
		return fmt.Errorf("no enabled sync directories configured")
	}

	remote, err := a.remoteStore(ctx)
	if err != nil {
		return err
	}

	eng := a.buildEngine(remote, opts)

	result, err := eng.Sync(ctx, opts)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if logErr := a.db.LogSyncResult(result); logErr != nil {
		a.logger.WithError(logErr).Warn("failed to record sync history")
	}

	printResult(result)
	if result.Kind == types.ResultError {
		return fmt.Errorf("sync failed: %s", result.Message)
	}
	return nil
}

func printResult(result *types.SyncResult) {
	switch result.Kind {
	case types.ResultSuccess:
		fmt.Printf("Sync complete: uploaded=%d downloaded=%d deleted=%d skipped=%d bytes=%d duration=%s\n",
			result.Uploaded, result.Downloaded, result.Deleted, result.Skipped, result.Bytes, result.Duration)
	case types.ResultPartialSuccess:
		fmt.Printf("Sync partially complete: succeeded=%d failed=%d duration=%s\n",
			result.Succeeded, result.Failed, result.Duration)
		for _, e := range result.Errors {
			fmt.Printf("  %s (%s): %v\n", e.Path, e.Kind, e.Err)
		}
	case types.ResultNotSignedIn:
		fmt.Println("Sync aborted: not signed in.")
	case types.ResultNetworkUnavailable:
		fmt.Println("Sync aborted: network unavailable.")
	case types.ResultCancelled:
		fmt.Println("Sync cancelled.")
	case types.ResultError:
		fmt.Printf("Sync failed: %s\n", result.Message)
	}
}
