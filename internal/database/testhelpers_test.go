package database

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/price-sync/internal/models"
)

// TestDB wraps a test database connection with cleanup
type TestDB struct {
	*DB
	container testcontainers.Container
}

// SetupTestDB creates a new PostgreSQL container and returns a migrated DB
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := New(DriverPostgres, connStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	testDB := &TestDB{DB: db, container: pgContainer}
	if err := testDB.Migrate(); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return testDB
}

// SetupSQLiteDB returns a migrated in-memory SQLite DB
func SetupSQLiteDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := New(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	testDB := &TestDB{DB: db}
	if err := testDB.Migrate(); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return testDB
}

// forEachBackend runs fn against SQLite and, outside short mode, PostgreSQL
func forEachBackend(t *testing.T, fn func(t *testing.T, testDB *TestDB)) {
	t.Helper()

	t.Run(DriverSQLite, func(t *testing.T) {
		testDB := SetupSQLiteDB(t)
		defer testDB.Cleanup(t)
		fn(t, testDB)
	})

	t.Run(DriverPostgres, func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test in short mode")
		}
		testDB := SetupTestDB(t)
		defer testDB.Cleanup(t)
		fn(t, testDB)
	})
}

// Cleanup closes the database connection and terminates the container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tdb.DB != nil {
		tdb.DB.Close()
	}

	if tdb.container != nil {
		if err := tdb.container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}
}

// TruncateAll empties all tables for test isolation
func (tdb *TestDB) TruncateAll(t *testing.T) {
	t.Helper()

	for _, table := range []string{"daily_price", "symbol"} {
		_, err := tdb.conn.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}

// SeedSymbols inserts tickers into the symbol directory in order
func (tdb *TestDB) SeedSymbols(t *testing.T, tickers ...string) []models.Symbol {
	t.Helper()

	query := fmt.Sprintf("INSERT INTO symbol (ticker) VALUES (%s)", tdb.dialect.bindvar(1))
	for _, ticker := range tickers {
		if _, err := tdb.conn.Exec(query, ticker); err != nil {
			t.Fatalf("failed to seed symbol %s: %v", ticker, err)
		}
	}

	symbols, err := tdb.GetSymbols()
	if err != nil {
		t.Fatalf("failed to read seeded symbols: %v", err)
	}
	return symbols
}

// GetRawConn returns the underlying sql.DB for direct queries in tests
func (tdb *TestDB) GetRawConn() *sql.DB {
	return tdb.conn
}
