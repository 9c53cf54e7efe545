// Package dbtest provisions throwaway Postgres databases for integration
// tests. Tests are skipped unless TEST_DATABASE_URL points at a server the
// test user may create databases on.
package dbtest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"dummy_device/device-go/internal/db"
	"dummy_device/device-go/migrations"
)

func RequireDatabaseURL(t testing.TB) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	return dsn
}

func deriveDatabaseURL(t testing.TB, baseURL, dbName string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.Skipf("TEST_DATABASE_URL must be a URL-style DSN (e.g. postgres://...); got %q", baseURL)
	}

	u.Path = "/" + dbName
	return u.String()
}

func newDatabaseName() string {
	// Safe identifier (letters/digits/underscores) so we can use it without quoting.
	return fmt.Sprintf("device_go_test_%d", time.Now().UnixNano())
}

func exec(ctx context.Context, adminURL, sql string) error {
	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, sql)
	return err
}

// New creates an empty database, applies the embedded migrations and returns
// a pool bound to it. The database is dropped when the test finishes.
func New(t testing.TB, opts db.Options) (*db.Pool, string) {
	t.Helper()
	adminURL := RequireDatabaseURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := newDatabaseName()
	testURL := deriveDatabaseURL(t, adminURL, dbName)

	if err := exec(ctx, adminURL, "CREATE DATABASE "+dbName); err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		if err := exec(ctx, adminURL, "DROP DATABASE "+dbName+" WITH (FORCE)"); err != nil {
			_ = exec(ctx, adminURL, "DROP DATABASE "+dbName)
		}
	})

	pool, err := db.Open(ctx, testURL, opts)
	if err != nil {
		t.Fatalf("open db pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool, testURL
}
