package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/imdb-ratings/internal/config"
)

// Options tunes the pgx pool. Zero values keep the pgx defaults, except
// StatementCacheCapacity where zero disables the cache.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *log.Logger
}

// OptionsFromConfig maps the shared database settings of both binaries.
func OptionsFromConfig(db config.Database, logger *log.Logger) Options {
	secs := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return Options{
		MaxConns:               int32(db.MaxConns),
		MinConns:               int32(db.MinConns),
		MaxConnIdleTime:        secs(db.MaxIdleSecs),
		MaxConnLifetime:        secs(db.MaxLifeSecs),
		ConnTimeout:            secs(db.ConnTimeoutSecs),
		StatementCacheCapacity: db.StatementCache,
		Logger:                 logger,
	}
}

func (o Options) apply(cfg *pgxpool.Config) {
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = o.MaxConnLifetime
	}
	if o.StatementCacheCapacity > 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = o.StatementCacheCapacity
	} else {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	}
}

// Store owns the imdb_ratings database: the pool, its schema and its pool
// metrics. The ingest job and the lookup server each build one in main.
type Store struct {
	pool        *pgxpool.Pool
	logger      *log.Logger
	connTimeout time.Duration
}

// New opens a pool against dbURL and pings it before returning.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	opts.apply(poolCfg)

	st := FromPool(nil, opts.Logger)
	st.connTimeout = opts.ConnTimeout

	connCtx, cancel := st.withTimeout(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", poolCfg.ConnConfig.Host, err)
	}
	st.pool = pool

	st.logger.Printf("store: connected to %s/%s (max_conns=%d, min_conns=%d, stmt_cache=%d)",
		poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database,
		poolCfg.MaxConns, poolCfg.MinConns, opts.StatementCacheCapacity)
	return st, nil
}

// FromPool wraps an existing pool, as tests do with their own databases.
func FromPool(pool *pgxpool.Pool, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.connTimeout > 0 {
		return context.WithTimeout(ctx, s.connTimeout)
	}
	return ctx, func() {}
}

var errNoPool = errors.New("store: no connection pool")

// EnsureSchema creates imdb_ratings and its rating index when missing. The
// ingest job calls it before every run.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errNoPool
	}
	return ensureSchema(ctx, s.pool)
}

// HealthCheck pings the database within the connect timeout.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errNoPool
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pgx pool for repositories.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Println("store: closing pool")
	s.pool.Close()
}
