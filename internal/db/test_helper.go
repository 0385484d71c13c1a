package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/atharvakonge/stocksim/internal/config"
	"github.com/shopspring/decimal"
)

// SetupTestDB connects to TEST_DATABASE_URL and migrates it. The test is
// skipped when the variable is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := OpenDSN(context.Background(), dsn, config.Postgres{MaxOpenConns: 10})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := Migrate(context.Background(), conn, Up); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		CleanupTestDB(t, conn)
		conn.Close()
	})
	return conn
}

// CleanupTestDB removes every row the tests may have written.
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	_, err := conn.Exec(`TRUNCATE challenge_participants, challenges, transactions,
		stock_holdings, portfolios, profiles, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
}

// CreateTestUser inserts a user with a profile holding balance and returns its ID.
func CreateTestUser(t *testing.T, conn *sql.DB, username string, balance decimal.Decimal) int64 {
	t.Helper()

	// Make username unique by adding timestamp
	uniqueUsername := fmt.Sprintf("%s_%d", username, time.Now().UnixNano())

	var userID int64
	err := conn.QueryRow(
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, 'x') RETURNING id",
		uniqueUsername, uniqueUsername+"@test.com",
	).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	if _, err := conn.Exec("INSERT INTO profiles (user_id, balance) VALUES ($1, $2)", userID, balance); err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return userID
}
