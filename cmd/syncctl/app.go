package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/auth"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/cache"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/config"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/crypto"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/engine"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/logging"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/progress"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/remotestore/zoho"
	"github.com/scottgl9/android-google-drive-sync-sub001/internal/storage"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// app bundles the collaborators every subcommand needs, wired the way
// cmd/cli's CLI struct wired config/storage/logger in the teacher.
type app struct {
	appName string
	cfg     *types.Config
	db      *storage.Database
	logger  *logrus.Logger
	auth    *auth.Client
}

func newApp(appName, cfgPath string) (*app, error) {
	cfg, err := config.Load(appName, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(appName, cfg.App.LogLevel)

	db, err := storage.Open(config.DatabasePath(appName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	authClient := auth.New(cfg.Auth, auth.DefaultEndpoint, db)

	return &app{appName: appName, cfg: cfg, db: db, logger: logger, auth: authClient}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// remoteStore resolves the account root, ensures "<app_folder_name>/sync"
// exists, and returns a zoho.Client scoped to that folder — the remote
// root every SyncDirectory.RemoteRoot is expressed relative to, per
// spec.md §6 ("/<app_folder_name>/sync/... for the user-visible synced
// tree").
func (a *app) remoteStore(ctx context.Context) (*zoho.Client, error) {
	probe := zoho.New(a.auth, "")
	accountRootID, err := probe.AccountRootID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve account root: %w", err)
	}

	scoped := zoho.New(a.auth, accountRootID)
	syncRootID, err := scoped.EnsureFolderStructure(ctx, types.Path(a.cfg.AppFolder+"/sync"))
	if err != nil {
		return nil, fmt.Errorf("ensure remote folder structure: %w", err)
	}

	return zoho.New(a.auth, syncRootID), nil
}

// buildEngine wires a full internal/engine.Engine against the app's
// database-backed resume store, disk-persisted metadata cache, and the
// device keystore, matching the collaborators engine.Config names.
func (a *app) buildEngine(remote *zoho.Client, opts types.SyncOptions) *engine.Engine {
	c := cache.New(opts.Cache, config.CacheDiskPath(a.appName))

	// engine.New installs its own checkpoint callback on this tracker, so
	// the checkpointFn passed here is never used directly.
	tracker := progress.NewTracker(nil, nil)

	return engine.New(engine.Config{
		Remote:           remote,
		Cache:            c,
		ResumeStore:      a.db,
		Tracker:          tracker,
		DeviceKeyStore:   crypto.KeyringDeviceKeyStore{},
		DeviceKeyService: a.appName,
	}, opts.ChecksumAlgorithm)
}
