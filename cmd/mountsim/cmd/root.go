// Package cmd implements the mountsim CLI commands.
//
// mountsim replays a scenario of mount passes against an in-memory host and
// prints what each extension did to the mounted set.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-drift/mountref/pkg/config"
	"github.com/go-drift/mountref/pkg/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
	trace      bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "mountsim",
		Short: "Replay mount passes against the mount reference broker",
		Long: `mountsim replays a YAML scenario of render trees and visible rects through
a Mounter and its extensions, then prints the mounted set, host calls,
visibility events and trace sections after every step.

Settings are read from mountref.yaml in the working directory unless
--config points elsewhere.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a mountref.yaml file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.trace, "trace", false, "Record trace sections")
	root.AddCommand(newRunCmd(opts), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig resolves the configuration and applies command line overrides.
func (o *globalOptions) loadConfig() (*config.Resolved, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	var res *config.Resolved
	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		if res, err = cfg.Resolve(dir); err != nil {
			return nil, err
		}
	} else if res, err = config.Resolve(dir); err != nil {
		return nil, err
	}
	if o.trace {
		res.TraceEnabled = true
	}
	return res, nil
}

// newLogger installs the global logger and returns the session logger.
// The level comes from the config file, then MOUNTREF_LOG_LEVEL, then
// --log-level.
func (o *globalOptions) newLogger(cmd *cobra.Command, res *config.Resolved) (zerolog.Logger, error) {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	cfg.Level = res.LogLevel
	logging.ApplyEnvOverrides(&cfg)
	if o.logLevel != "" {
		lvl, ok := logging.ParseLevel(o.logLevel)
		if !ok {
			return zerolog.Logger{}, fmt.Errorf("unknown log level %q", o.logLevel)
		}
		cfg.Level = lvl
	}
	cfg.Out = cmd.ErrOrStderr()
	res.LogLevel = cfg.Level
	log.Logger = logging.NewRoot(cfg)
	return logging.New("mountsim").With().Str("name", res.Name).Logger(), nil
}
