package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(appName, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication and recent sync history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*appName, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runStatus(a)
		},
	}
}

func runStatus(a *app) error {
	if a.auth.IsSignedIn() {
		fmt.Println("Signed in:   yes")
	} else {
		fmt.Println("Signed in:   no")
	}
	fmt.Printf("App folder:  %s\n", a.cfg.AppFolder)
	fmt.Printf("Directories: %d configured\n", len(a.cfg.Folders))

	history, err := a.db.RecentHistory(5)
	if err != nil {
		return fmt.Errorf("load sync history: %w", err)
	}
	if len(history) == 0 {
		fmt.Println("No sync runs recorded yet.")
		return nil
	}

	fmt.Println("Recent syncs:")
	for _, h := range history {
		fmt.Printf("  %s  %-16s  +%d -%d ~%d  %s\n",
			h.RanAt.Format("2006-01-02 15:04:05"), h.Kind, h.Uploaded, h.Downloaded, h.Deleted, h.Duration)
	}
	return nil
}
