package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/harrisonrobin/tasksync/pkg/auth"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/service"
	"github.com/harrisonrobin/tasksync/pkg/taskmap"
	"github.com/harrisonrobin/tasksync/pkg/tasksync"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronisation pass from source to destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(a.v, cmd.Flags(), map[string]string{
				"source":        "source",
				"destination":   "destination",
				"map_file":      "map-file",
				"clean_orphans": "clean-orphans",
			}); err != nil {
				return err
			}
			cfg, logger, err := a.load()
			if err != nil {
				return err
			}
			if cfg.Source == cfg.Destination {
				return fmt.Errorf("source and destination are both %q", cfg.Source)
			}

			ctx := cmd.Context()
			src, err := a.registry.Open(ctx, cfg.Source, cfg, logger)
			if err != nil {
				return err
			}
			dst, err := a.registry.Open(ctx, cfg.Destination, cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("starting pass", "source", cfg.Source, "destination", cfg.Destination, "map_file", cfg.MapFile)
			res, err := runPass(ctx, src, dst, cfg.MapFile, cfg.CleanOrphans, logger)
			if res != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "created %d, recreated %d, updated %d, unchanged %d, deleted %d, orphans removed %d\n",
					res.Created, res.Recreated, res.Updated, res.Unchanged, res.Deleted, res.OrphansRemoved)
			}
			return err
		},
	}

	cmd.Flags().Bool("clean-orphans", false, "drop mappings whose source task no longer exists")
	cmd.Flags().String("source", "", "source task service")
	cmd.Flags().String("destination", "", "destination task service")
	cmd.Flags().String("map-file", "", "task map file (.json or .yaml)")
	return cmd
}

// runPass loads the task map, synchronises once and saves the map. The map
// is saved even when the pass fails: destination tasks created before the
// failure already exist, and losing their mappings would duplicate them on
// the next run.
func runPass(ctx context.Context, src, dst service.TaskService, mapFile string, cleanOrphans bool, logger *slog.Logger) (*tasksync.Result, error) {
	m, err := taskmap.Load(mapFile)
	if err != nil {
		return nil, err
	}

	res, syncErr := tasksync.New(src, dst, m, tasksync.WithLogger(logger)).Synchronise(ctx, cleanOrphans)
	if syncErr != nil {
		logger.Error("pass failed, saving partial task map", "error", syncErr)
	}

	if err := taskmap.Save(mapFile, m); err != nil {
		return res, errors.Join(syncErr, fmt.Errorf("failed to save task map: %w", err))
	}
	logger.Debug("task map saved", "map_file", mapFile, "mappings", m.Len())
	return res, syncErr
}

func newMappingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "List the source to destination task mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(a.v, cmd.Flags(), map[string]string{"map_file": "map-file"}); err != nil {
				return err
			}
			cfg, _, err := a.load()
			if err != nil {
				return err
			}
			m, err := taskmap.Load(cfg.MapFile)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tDESTINATION")
			for _, srcID := range m.AllSourceIDs() {
				dstID, _ := m.TryDestinationID(srcID)
				fmt.Fprintf(w, "%s\t%s\n", srcID, dstID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("map-file", "", "task map file (.json or .yaml)")
	return cmd
}

func newServicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the available task services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range a.registry.Names() {
				fmt.Fprintf(w, "%s\t%s\n", name, a.registry.Description(name))
			}
			return w.Flush()
		},
	}
}

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Tasks, replacing any cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load()
			if err != nil {
				return err
			}
			removed, err := auth.RemoveToken(cfg.Dir)
			if err != nil {
				return fmt.Errorf("%w. Please delete it manually", err)
			}
			if removed {
				logger.Info("removed existing token", "dir", cfg.Dir)
			}

			if _, err := auth.GetClient(cmd.Context(), cfg.Dir, auth.Scopes, logger); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", auth.TokenFile)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a key to the config file (comma separated values become lists)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(a.v, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := a.v.AllSettings()
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, settings[k])
			}
			return nil
		},
	})
	return cmd
}
