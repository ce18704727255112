package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"soql-workbench/internal/model"
	"soql-workbench/internal/upstream"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		creds    upstream.Credentials
		remember bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the CRM platform through the workbench server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			saved, err := a.prefs.Login(ctx)
			if err != nil {
				return err
			}
			if creds.Username == "" {
				creds.Username = saved.Username
			}
			if !cmd.Flags().Changed("environment") && saved.Environment != "" {
				creds.Environment = saved.Environment
			}
			if creds.CustomDomain == "" {
				creds.CustomDomain = saved.CustomDomain
			}
			if creds.Password == "" {
				creds.Password = os.Getenv("WORKBENCH_PASSWORD")
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if creds.Username == "" {
				if creds.Username, err = prompt(a, in, "Username: "); err != nil {
					return err
				}
			}
			if creds.Password == "" {
				if creds.Password, err = prompt(a, in, "Password (append security token if required): "); err != nil {
					return err
				}
			}

			resp, err := a.api.Login(ctx, creds)
			if err != nil {
				return err
			}

			if err := a.prefs.RememberLogin(ctx, model.LoginPreferences{
				Username:     creds.Username,
				Environment:  creds.Environment,
				CustomDomain: creds.CustomDomain,
				RememberMe:   remember,
			}); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Logged in as %s (org %s)\n", resp.UserInfo.ID, resp.UserInfo.OrganizationID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password with security token (or WORKBENCH_PASSWORD)")
	cmd.Flags().StringVarP(&creds.Environment, "environment", "e", "production", "production or sandbox")
	cmd.Flags().StringVar(&creds.CustomDomain, "domain", "", "custom My Domain name")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember username, environment and domain")
	return cmd
}

func prompt(a *app, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the session is authenticated",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.api.AuthStatus(cmd.Context())
			if err != nil {
				return err
			}
			if !status.Authenticated {
				fmt.Fprintln(a.out, "Not authenticated")
				return nil
			}
			fmt.Fprintf(a.out, "Authenticated as %s\n", status.UserInfo.ID)
			fmt.Fprintf(a.out, "Organization:   %s\n", status.UserInfo.OrganizationID)
			if status.SessionID != nil {
				fmt.Fprintf(a.out, "Session:        %s\n", *status.SessionID)
			}
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Extend the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.api.RefreshSession(cmd.Context())
			if err != nil {
				return apiError(err)
			}
			fmt.Fprintln(a.out, resp.Message)
			return nil
		},
	}
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage remembered login preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show remembered login preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.prefs.Login(cmd.Context())
			if err != nil {
				return err
			}
			if !prefs.RememberMe {
				fmt.Fprintln(a.out, "No login preferences remembered")
				return nil
			}
			fmt.Fprintf(a.out, "Username:     %s\n", prefs.Username)
			fmt.Fprintf(a.out, "Environment:  %s\n", prefs.Environment)
			if prefs.CustomDomain != "" {
				fmt.Fprintf(a.out, "Domain:       %s\n", prefs.CustomDomain)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Forget login preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prefs.ClearLogin(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Login preferences cleared")
			return nil
		},
	})
	return cmd
}
