// Package cli implements the flowchart command line: offline document
// checks and conversion, moving documents in and out of the configured
// store, and the HTTP editing server.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flowchart/internal/config"
	"github.com/meikuraledutech/flowchart/internal/logging"
)

var version = "dev"

type rootOpts struct {
	configPath string
	verbose    bool
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:           "flowchart",
		Short:         "Edit, check and serve flowchart documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.Level("", opts.verbose)
			ctx := logging.WithLogger(cmd.Context(), logging.New(cmd.ErrOrStderr(), level))
			cmd.SetContext(ctx)
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "flowchart.toml", "configuration file")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newPushCmd(opts))
	root.AddCommand(newPullCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newRemoveCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

// loadConfig reads the configuration file and raises the context logger
// to the configured level unless --verbose already lowered it.
func (o *rootOpts) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	logger := logging.FromContext(cmd.Context())
	logger.SetLevel(logging.Level(cfg.Log.Level, o.verbose))
	logger.Debug("config loaded", "path", o.configPath, "backend", cfg.Store.Backend)
	return cfg, nil
}
