package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ConfigFrom maps the application database settings.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}
}

// DB is an open database handle. Pool is set for postgres only.
type DB struct {
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	Driver string
	logger *slog.Logger
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "driver", cfg.Driver)

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		db, err = openPostgres(ctx, cfg)
	case DriverSQLite, "":
		db, err = openSQLite(ctx, cfg)
	default:
		return nil, common.NewAppError("UNSUPPORTED_DRIVER", "unsupported database driver "+cfg.Driver, common.ErrConfig)
	}
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	db.logger = logger

	if err := db.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrDatabase, err)
	}
	logger.Info("successfully connected to database", "driver", db.Driver)
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "idcard-reader"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Driver: DriverPostgres}, nil
}

func openSQLite(ctx context.Context, cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, err
		}
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer; an in-memory database also lives on a single connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if dsn != ":memory:" {
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return &DB{SQL: sqlDB, Driver: DriverSQLite}, nil
}

// Close releases the handle and, for postgres, the pool.
func (d *DB) Close() {
	if d == nil {
		return
	}
	if err := d.SQL.Close(); err != nil && d.logger != nil {
		d.logger.Error("failed to close database", "error", err)
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// HealthCheck pings the database.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", common.ErrDatabase, err)
	}
	return nil
}

func (d *DB) migrate(ctx context.Context) error {
	ts := "DATETIME"
	if d.Driver == DriverPostgres {
		ts = "TIMESTAMPTZ"
	}
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		document_type TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		engine TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		id_number TEXT,
		full_name TEXT,
		date_of_birth TEXT,
		place_of_birth TEXT,
		gender TEXT,
		address TEXT,
		expiry_date TEXT,
		normalized_text TEXT NOT NULL DEFAULT '',
		warnings TEXT NOT NULL DEFAULT '',
		created_at ` + ts + ` NOT NULL
	)`
	if _, err := d.SQL.ExecContext(ctx, schema); err != nil {
		return err
	}
	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_documents_id_number ON documents(id_number)",
	} {
		if _, err := d.SQL.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (d *DB) rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
