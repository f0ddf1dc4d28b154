package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/filestore"
	"github.com/meikuraledutech/flowchart/internal/config"
	"github.com/meikuraledutech/flowchart/internal/logging"
	"github.com/meikuraledutech/flowchart/memstore"
	"github.com/meikuraledutech/flowchart/postgres"
	"github.com/meikuraledutech/flowchart/redis"
)

// openStore connects the backend named in cfg. The returned func releases
// its connections and is never nil.
func openStore(ctx context.Context, cfg config.Store) (flowchart.Store, func(), error) {
	logger := logging.FromContext(ctx)
	nop := func() {}

	switch cfg.Backend {
	case config.BackendMemory:
		return memstore.New(), nop, nil

	case config.BackendFile:
		logger.Debug("using file store", "dir", cfg.Dir)
		return filestore.NewStore(cfg.Dir), nop, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nop, err
		}
		store := postgres.New(pool)
		if err := store.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nop, fmt.Errorf("schema: %w", err)
		}
		logger.Debug("using postgres store")
		return store, pool.Close, nil

	case config.BackendRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.RedisPrefix)}
		if cfg.RedisTTL.Duration > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL.Duration))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nop, err
		}
		logger.Debug("using redis store", "addr", cfg.RedisAddr)
		return store, func() { store.Close() }, nil

	default:
		return nil, nop, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// withStore loads the configuration, opens the store and runs fn with it.
func (o *rootOpts) withStore(cmd *cobra.Command, fn func(context.Context, flowchart.Store) error) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(ctx, store)
}

func newPushCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "push FILE ID",
		Short: "Check a document file and save it to the store under ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := readChecked(args[0])
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, store flowchart.Store) error {
				if err := store.Save(ctx, args[1], &doc); err != nil {
					return err
				}
				logging.FromContext(ctx).Info("pushed", "file", args[0], "id", args[1])
				return nil
			})
		},
	}
}

func newPullCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "pull ID FILE",
		Short: "Write the document stored under ID to FILE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, store flowchart.Store) error {
				doc, err := store.Load(ctx, args[0])
				if err != nil {
					return fmt.Errorf("pull %s: %w", args[0], err)
				}
				if err := filestore.WriteFile(args[1], *doc); err != nil {
					return err
				}
				logging.FromContext(ctx).Info("pulled", "id", args[0], "file", args[1])
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the ids of stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, store flowchart.Store) error {
				ids, err := store.List(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newRemoveCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a stored document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, store flowchart.Store) error {
				return store.Delete(ctx, args[0])
			})
		},
	}
}
