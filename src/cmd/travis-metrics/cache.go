package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"travis-metrics/src/config"
	"travis-metrics/src/httpcache"
	"travis-metrics/src/logger"
	"travis-metrics/src/store"
)

// openStore opens the configured response cache. It returns nil for the "none" backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendMemory:
		return store.NewInMemoryStore(), nil
	case config.CacheBackendFile:
		return store.NewFileStore(cfg.CacheDir)
	case config.CacheBackendSQLite:
		dsn := cfg.CacheDSN
		if dsn == "" {
			if err := os.MkdirAll(cfg.CacheDir, 0o777); err != nil {
				return nil, fmt.Errorf("failed to create cache directory %s: %w", cfg.CacheDir, err)
			}
			dsn = filepath.Join(cfg.CacheDir, "cache.db")
		}
		return store.NewSQLiteStore(ctx, dsn)
	case config.CacheBackendPostgres:
		return store.NewPostgresStore(ctx, cfg.CacheDSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// newHTTPClient returns the client used for every API request, caching through st when it is set.
func newHTTPClient(cfg *config.Config, st store.Store, log logger.Logger) *http.Client {
	client := &http.Client{}
	if st != nil {
		tr := httpcache.NewTransport(st, cfg.CacheTTL, "Authorization")
		tr.Logger = log
		client = tr.Client()
	}
	client.Timeout = cfg.HTTPTimeout
	return client
}

// cacheCmd groups the cache maintenance commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the API response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "Pruned", func(ctx context.Context, st store.Store) (int, error) {
			return st.Prune(ctx, time.Now())
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "Cleared", func(ctx context.Context, st store.Store) (int, error) {
			return st.Clear(ctx)
		})
	},
}

func withStore(cmd *cobra.Command, verb string, fn func(context.Context, store.Store) (int, error)) error {
	ctx := cmd.Context()

	st, err := openStore(ctx, appConfig)
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled")
		return nil
	}
	defer st.Close()

	n, err := fn(ctx, st)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s cache entries\n", verb, humanize.Comma(int64(n)))
	return nil
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
