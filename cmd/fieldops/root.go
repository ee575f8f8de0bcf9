package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/config"
	"github.com/agrosync/fieldops/internal/server"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configDir string
	userID    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "AgroSync field operation sessions and markers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config", ".", "directory containing "+config.FileName)
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "user id the command acts as")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage operation sessions",
	}
	sessionsCmd.AddCommand(sessionsListCmd(opts), sessionsCompleteCmd(opts))

	root.AddCommand(serveCmd(opts), sessionsCmd, historyCmd(opts), markCmd(opts))
	return root
}

// withApp runs fn against services acting as the --user identity.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, opts.configDir, auth.StaticProvider{User: userFor(opts.userID)})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(auth.WithUser(ctx, userFor(opts.userID)), a)
}

func userFor(id string) *core.User {
	if id == "" {
		return nil
	}
	return &core.User{ID: id}
}

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.configDir, auth.ContextProvider{})
			if err != nil {
				return err
			}
			defer a.Close()

			srvCfg := config.GetServerConfig()
			if addr == "" {
				addr = srvCfg.Address
			}
			srv := server.New(server.Dependencies{
				Sessions:   a.Sessions,
				Markers:    a.Markers,
				History:    a.History,
				Placement:  a.Placement,
				Profile:    a.Profile,
				Logger:     a.Logger,
				UserHeader: srvCfg.UserHeader,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.Logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.address")
	return cmd
}

func sessionsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				list, err := a.Sessions.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED")
				for _, s := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Status, s.CreatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func sessionsCompleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				s, err := a.Sessions.Complete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed %q (%s)\n", s.Name, s.ID)
				return nil
			})
		},
	}
}

func historyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show sessions with their markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				entries, err := a.History.List(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, h := range entries {
					fmt.Fprintf(out, "%s [%s] %d areas\n", h.Name, h.Status, h.TotalAreas)
					for _, m := range h.Markers {
						fmt.Fprintf(out, "  %d. %s  %s  %s\n", m.Order, m.AreaName, m.Coordinates, m.LocationName)
					}
				}
				return nil
			})
		},
	}
}

func markCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <lat> <lng>",
		Short: "Mark a location in the active session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q: %w", args[0], err)
			}
			lng, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q: %w", args[1], err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				m, err := a.Placement.Place(ctx, lat, lng)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", m.AreaName, m.Coordinates, m.LocationName)
				return nil
			})
		},
	}
}
