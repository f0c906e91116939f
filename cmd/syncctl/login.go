package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/auth"
)

func newLoginCommand(appName, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the cloud drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*appName, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runLogin(cmd.Context(), a)
		},
	}
}

func runLogin(ctx context.Context, a *app) error {
	if err := auth.ValidateAuthConfig(a.cfg.Auth); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	authURL, err := a.auth.AuthCodeURL()
	if err != nil {
		return fmt.Errorf("build authorization URL: %w", err)
	}

	fmt.Println("Visit the following URL to authorize syncctl:")
	fmt.Println(authURL)
	fmt.Println("Waiting for the authorization callback...")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := a.auth.RunLocalCallbackServer(ctx, a.cfg.Auth.RedirectURI); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Println("Signed in.")
	return nil
}

func newLogoutCommand(appName, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted authentication token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*appName, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.auth.SignOut(); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}
