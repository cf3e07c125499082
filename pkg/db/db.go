// Package db provides the PostgreSQL connection pool and the
// transaction boundary used for per-request view isolation.
//
// Runner adapts a pool into the transaction wrapper the dispatch engine
// uses for atomic views: the transaction begins before the view runs,
// commits on success and rolls back on failure or panic. Views reach
// the open transaction through TxFromContext.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for pool setup.
var (
	ErrParseConfig = errors.New("db: failed to parse connection config")
	ErrConnect     = errors.New("db: failed to open connection")
)

// Config holds connection pool settings.
type Config struct {
	ConnectionString string
	MaxConns         int32
	MinConns         int32
	RetryAttempts    int
	RetryInterval    time.Duration
}

// Connect establishes a PostgreSQL connection pool with linear-backoff
// retries so restarts during a database failover do not crash-loop.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrParseConfig, err)
	}
	if cfg.MaxConns > 0 {
		connConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		connConfig.MinConns = cfg.MinConns
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnect, ctx.Err())
		case <-time.After(time.Duration(i+1) * interval):
		}
	}

	return nil, ErrConnect
}

// Shutdown returns a cleanup function that closes the connection pool.
// Use with the server's shutdown hooks.
func Shutdown(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}

type txKey struct{}

// TxFromContext returns the transaction opened by Runner for the
// current request, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// Runner returns a transaction wrapper around pool. The wrapped
// function observes the open transaction through TxFromContext; an
// error return or panic rolls back, otherwise the transaction commits.
func Runner(pool *pgxpool.Pool) func(ctx context.Context, fn func(ctx context.Context) error) error {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback(ctx)
				panic(p)
			}
		}()

		if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		return tx.Commit(ctx)
	}
}
