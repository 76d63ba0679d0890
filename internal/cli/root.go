// Package cli wires the firegate commands: run the pipeline, generate
// capture files, and manage configuration.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/firegate/firegate/internal/config"
	"github.com/firegate/firegate/internal/logging"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Dev        bool
}

// NewRootCommand creates the firegate root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "firegate",
		Short: "Ordered parallel packet pipeline",
		Long: `firegate streams fixed-size frames through a bounded ring buffer into a
pool of workers that classify them in parallel, while committing output
records in exactly the order frames arrived.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to TOML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "human-readable console logs")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// loadConfig resolves the layered configuration for a command invocation.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath != "" {
		return config.LoadFile(o.ConfigPath)
	}
	return config.Load()
}

// newLogger builds the logger from config plus global flag overrides.
func (o *RootOptions) newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development || o.Dev,
	}
	if o.LogLevel != "" {
		logCfg.Level = o.LogLevel
	}
	return logging.New(logCfg)
}
