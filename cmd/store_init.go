package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/addis-analytics/fidata/internal/fetcher"
	"github.com/addis-analytics/fidata/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "fidata.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func initFetcher() *fetcher.Dispatcher {
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:    cfg.Fetch.MaxRetries,
		RatePerSecond: cfg.Fetch.RatePerSecond,
	})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Timeout: time.Duration(cfg.Fetch.FTPTimeoutSecs) * time.Second,
	})
	return fetcher.NewDispatcher(httpFetcher, ftpFetcher)
}
