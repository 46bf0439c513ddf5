// Package testing holds helpers shared by PostgreSQL integration tests.
package testing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upk240z/zipimport/internal/db"
	"github.com/upk240z/zipimport/internal/testinfra"
)

// TestConnEnv names a PostgreSQL URI that replaces the auto-started container.
const TestConnEnv = "ZIPIMPORT_TEST_CONN"

// ZipTableDDL creates a destination table with the importer's columns.
// The single %s is the sanitized table name.
const ZipTableDDL = `CREATE TABLE %s (
	code      varchar(5)  NOT NULL,
	zipcode   varchar(7),
	city      text,
	town      text,
	chome     text,
	city_kana text,
	town_kana text,
	start_ym  varchar(6)  NOT NULL,
	end_ym    varchar(6)  NOT NULL
)`

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartPostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: ZIPIMPORT_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnv); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnv, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// CreateZipTable creates a uniquely named destination table in the public
// schema and drops it when the test completes. It returns the table name.
func CreateZipTable(t *testing.T, connString string) string {
	t.Helper()

	ctx := context.Background()
	pool := GetTestPool(t, connString)

	table := "zip_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	ident := pgx.Identifier{table}.Sanitize()
	if _, err := pool.Exec(ctx, fmt.Sprintf(ZipTableDDL, ident)); err != nil {
		t.Fatalf("Failed to create table %s: %v", table, err)
	}

	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+ident); err != nil {
			t.Logf("Warning: Failed to drop table %s: %v", table, err)
		}
	})
	return table
}

// GetTestPool creates a connection pool for testing.
// The pool is automatically closed when the test completes.
func GetTestPool(t *testing.T, connString string) *pgxpool.Pool {
	t.Helper()

	config, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), db.BuildConnectionString(config))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}
