// syncctl is the command-line front end for the sync core, wiring
// internal/config, internal/auth, internal/remotestore/zoho, and
// internal/engine the way the teacher's cmd/cli wired internal/config,
// internal/auth, internal/api, and internal/sync.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
	commit    = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "syncctl",
		Short: "syncctl synchronizes a local directory tree against a cloud-drive folder",
		Long: `syncctl reconciles a local directory tree against a cloud-drive folder
hierarchy: it builds content-addressed manifests of both sides, computes a
diff plan, resolves conflicts per policy, and executes the plan with retry
and resumable checkpointing.`,
		Version:      fmt.Sprintf("%s (built %s, commit %s)", version, buildDate, commit),
		SilenceUsage: true,
	}

	var appName, cfgPath string
	root.PersistentFlags().StringVar(&appName, "app", "syncctl", "application name (selects config/state directories)")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to an explicit config file (defaults to the standard lookup path)")

	root.AddCommand(
		newLoginCommand(&appName, &cfgPath),
		newLogoutCommand(&appName, &cfgPath),
		newStatusCommand(&appName, &cfgPath),
		newSyncCommand(&appName, &cfgPath),
		newDaemonCommand(&appName, &cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
