package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"battle-arena/internal/config"
	"battle-arena/internal/database"

	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		EliminationThreshold: 4,
		DefenseHoldingCap:    10,
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTeam(t *testing.T, db *sql.DB, name string) {
	t.Helper()

	repo := NewParticipantRepository(db, zerolog.Nop())
	if _, err := repo.CreateTeam(context.Background(), name, "#ff0000"); err != nil {
		t.Fatalf("seed team %s: %v", name, err)
	}
}

func seedParticipant(t *testing.T, db *sql.DB, id, displayName, team string) {
	t.Helper()

	repo := NewParticipantRepository(db, zerolog.Nop())
	if err := repo.Create(context.Background(), id, displayName, team); err != nil {
		t.Fatalf("seed participant %s: %v", id, err)
	}
}

func seedStock(t *testing.T, db *sql.DB, ownerID, itemID string, quantity int) {
	t.Helper()

	repo := NewInventoryRepository(db, zerolog.Nop())
	if err := repo.Grant(context.Background(), ownerID, itemID, quantity); err != nil {
		t.Fatalf("seed stock %s/%s: %v", ownerID, itemID, err)
	}
}

func stockID(t *testing.T, db *sql.DB, ownerID, itemID string) string {
	t.Helper()

	var id string
	err := db.QueryRow(`SELECT id FROM inventory WHERE owner_id = ? AND item_id = ?`, ownerID, itemID).Scan(&id)
	if err != nil {
		t.Fatalf("look up stock id for %s/%s: %v", ownerID, itemID, err)
	}
	return id
}
