package store

import (
	"testing"

	"github.com/atharvakonge/stocksim/internal/db"
)

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		conn := db.SetupTestDB(t)
		db.CleanupTestDB(t, conn)
		return &Postgres{queries: queries{q: conn}, db: conn}
	})
}
