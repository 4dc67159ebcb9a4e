package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	registry   *registry.Registry
	configPath string
	v          *viper.Viper
	stderr     io.Writer
}

func main() {
	if err := newRootCmd(defaultRegistry(), os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(reg *registry.Registry, stderr io.Writer) *cobra.Command {
	a := &app{registry: reg, stderr: stderr}

	root := &cobra.Command{
		Use:   "tasksync",
		Short: "Keep two task services in sync",
		Long: `tasksync copies tasks from a source service to a destination service.

A task map remembers which destination task belongs to which source task,
so repeated runs update tasks instead of duplicating them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(a.configPath)
			if err != nil {
				return err
			}
			a.v = v
			return bindFlags(v, cmd.Flags(), map[string]string{
				"log_level":  "log-level",
				"log_format": "log-format",
			})
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/tasksync/config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text or json")

	root.AddCommand(
		newSyncCmd(a),
		newMappingsCmd(a),
		newServicesCmd(a),
		newAuthCmd(a),
		newConfigCmd(a),
	)
	return root
}

// bindFlags lets flags override viper keys; keys map to flag names.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// load decodes the effective configuration and builds the logger from it.
func (a *app) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(a.stderr, cfg.LogLevel, cfg.LogFormat), nil
}
