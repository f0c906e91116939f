// Package config loads the on-disk YAML configuration and resolves it into
// the SyncOptions the engine consumes, generalized from the teacher's
// internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/filter"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Load reads configuration from path if non-empty, otherwise searches the
// teacher's standard lookup path (./config.yaml, ~/.config/<app>/config.yaml,
// /etc/<app>/config.yaml), applying defaults for anything unset.
func Load(appName, path string) (*types.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, appName)

	explicitFileMissing := false
	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); err != nil {
			explicitFileMissing = true
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", appName))
		v.AddConfigPath(filepath.Join("/etc", appName))
	}

	if !explicitFileMissing {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// No config file on disk yet: fall through with defaults only.
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, appName string) {
	v.SetDefault("app.name", appName)
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("auth.redirect_uri", "http://localhost:8080/callback")
	v.SetDefault("auth.scopes", []string{"WorkDrive.files.ALL", "WorkDrive.folders.ALL"})

	v.SetDefault("network.timeout", 30)
	v.SetDefault("network.max_retries", 3)

	v.SetDefault("app_folder_name", appName)
	v.SetDefault("conflict_policy", "newer_wins")
	v.SetDefault("checksum_algorithm", "md5")
	v.SetDefault("network_policy", "any")
	v.SetDefault("encryption_mode", "none")
}

// ResolveSyncOptions turns the on-disk Config into the SyncOptions the
// engine understands: FolderSpec -> SyncDirectory, FilterSpec ->
// types.FileFilter (via internal/filter's constructors), and the various
// policy strings -> their typed enums.
func ResolveSyncOptions(cfg *types.Config) (types.SyncOptions, error) {
	opts := types.DefaultSyncOptions(cfg.AppFolder)

	policy, err := parseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		return opts, err
	}
	opts.ConflictPolicy = policy

	algorithm, err := parseAlgorithm(cfg.ChecksumAlgorithm)
	if err != nil {
		return opts, err
	}
	opts.ChecksumAlgorithm = algorithm

	netPolicy, err := parseNetworkPolicy(cfg.NetworkPolicy)
	if err != nil {
		return opts, err
	}
	opts.NetworkPolicy = netPolicy

	encMode, err := parseEncryptionMode(cfg.EncryptionMode)
	if err != nil {
		return opts, err
	}
	opts.Encryption = types.EncryptionConfig{Mode: encMode}

	dirs := make([]types.SyncDirectory, 0, len(cfg.Folders))
	for _, f := range cfg.Folders {
		if !f.Enabled {
			continue
		}
		mode, err := parseSyncMode(f.SyncMode)
		if err != nil {
			return opts, err
		}
		dirs = append(dirs, types.SyncDirectory{
			LocalRoot:  f.Local,
			RemoteRoot: f.Remote,
			Mode:       mode,
			Recursive:  f.Recursive,
		})
	}
	opts.SyncDirectories = dirs

	filters := make([]types.FileFilter, 0, len(cfg.Filters))
	for _, spec := range cfg.Filters {
		f, err := resolveFilter(spec)
		if err != nil {
			return opts, err
		}
		filters = append(filters, f)
	}
	opts.FileFilters = filters

	return opts, nil
}

func resolveFilter(spec types.FilterSpec) (types.FileFilter, error) {
	switch spec.Kind {
	case "extensions":
		return filter.IncludeExtensions(spec.Extensions...), nil
	case "exclude_extensions":
		return filter.ExcludeExtensions(spec.Extensions...), nil
	case "size_range":
		return filter.SizeRange(spec.MinSize, spec.MaxSize), nil
	case "glob":
		return filter.Glob(spec.Pattern), nil
	case "regex":
		return filter.Regex(spec.Pattern)
	case "hidden":
		return filter.HiddenFilter(), nil
	case "prefix":
		return filter.PathPrefix(spec.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown filter kind %q", spec.Kind)
	}
}

func parseSyncMode(s string) (types.SyncMode, error) {
	switch s {
	case "", "bidirectional":
		return types.ModeBidirectional, nil
	case "upload_only":
		return types.ModeUploadOnly, nil
	case "download_only":
		return types.ModeDownloadOnly, nil
	case "mirror_to_cloud":
		return types.ModeMirrorToCloud, nil
	case "mirror_from_cloud":
		return types.ModeMirrorFromCloud, nil
	default:
		return 0, fmt.Errorf("unknown sync_mode %q", s)
	}
}

func parseConflictPolicy(s string) (types.ConflictPolicy, error) {
	switch s {
	case "", "newer_wins":
		return types.PolicyNewerWins, nil
	case "local_wins":
		return types.PolicyLocalWins, nil
	case "remote_wins":
		return types.PolicyRemoteWins, nil
	case "keep_both":
		return types.PolicyKeepBoth, nil
	case "skip":
		return types.PolicySkip, nil
	case "ask_user":
		return types.PolicyAskUser, nil
	default:
		return 0, fmt.Errorf("unknown conflict_policy %q", s)
	}
}

func parseAlgorithm(s string) (types.Algorithm, error) {
	switch s {
	case "", "md5":
		return types.AlgorithmMD5, nil
	case "sha256":
		return types.AlgorithmSHA256, nil
	default:
		return 0, fmt.Errorf("unknown checksum_algorithm %q", s)
	}
}

func parseNetworkPolicy(s string) (types.NetworkPolicy, error) {
	switch s {
	case "", "any":
		return types.NetworkAny, nil
	case "unmetered_only":
		return types.NetworkUnmeteredOnly, nil
	case "wifi_only":
		return types.NetworkWifiOnly, nil
	case "not_roaming":
		return types.NetworkNotRoaming, nil
	default:
		return 0, fmt.Errorf("unknown network_policy %q", s)
	}
}

func parseEncryptionMode(s string) (types.EncryptionMode, error) {
	switch s {
	case "", "none":
		return types.EncryptionNone, nil
	case "device_keystore":
		return types.EncryptionDeviceKeystore, nil
	case "passphrase":
		return types.EncryptionPassphrase, nil
	default:
		return 0, fmt.Errorf("unknown encryption_mode %q", s)
	}
}
