package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Connection pool defaults. The database is the only shared mutable state in
// the process, so the pool bounds are the effective concurrency limits.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 30 * time.Second
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConfigFromEnv reads connection settings from the environment with local
// development defaults.
func ConfigFromEnv() Config {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return Config{
		Host:     get("POSTGRES_HOST", "localhost"),
		Port:     get("POSTGRES_PORT", "5432"),
		User:     get("POSTGRES_USER", "postgres"),
		Password: get("POSTGRES_PASSWORD", "postgres"),
		DBName:   get("POSTGRES_DB", "smilepill"),
		SSLMode:  get("POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) dsn() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// OpenDB opens a pooled connection and verifies it with a bounded ping. The
// caller owns the returned handle and closes it on shutdown.
func OpenDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// ClearAllData wipes every business table in foreign-key dependency order.
// Reset tooling only; never reachable from a request path.
func ClearAllData(ctx context.Context, db *sql.DB) error {
	tables := []string{
		"order_items",
		"orders",
		"cart_items",
		"prescriptions",
		"admin_permissions",
		"products",
		"categories",
		"brands",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
