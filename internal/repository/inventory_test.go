package repository

import (
	"context"
	"errors"
	"testing"

	"battle-arena/internal/domain"

	"github.com/rs/zerolog"
)

func TestConsumeDecrementsQuantity(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedStock(t, db, "p1", "item-attack", 3)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-attack")
	if err := repo.Consume(ctx, "p1", id); err != nil {
		t.Fatalf("consume: %v", err)
	}

	q, err := repo.GetQuantity(ctx, "p1", "item-attack")
	if err != nil {
		t.Fatalf("get quantity: %v", err)
	}
	if q != 2 {
		t.Fatalf("quantity = %d, want 2", q)
	}
}

func TestConsumeDeletesAtQuantityOne(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedStock(t, db, "p1", "item-attack", 1)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-attack")
	if err := repo.Consume(ctx, "p1", id); err != nil {
		t.Fatalf("consume: %v", err)
	}

	if _, err := repo.GetByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("record should be deleted, got err = %v", err)
	}

	q, err := repo.GetQuantity(ctx, "p1", "item-attack")
	if err != nil {
		t.Fatalf("get quantity: %v", err)
	}
	if q != 0 {
		t.Fatalf("quantity = %d, want 0", q)
	}
}

func TestConsumeMissingRecord(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	repo := NewInventoryRepository(db, zerolog.Nop())

	err := repo.Consume(context.Background(), "p1", "no-such-record")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConsumeForeignOwner(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedParticipant(t, db, "p2", "Bob", "")
	seedStock(t, db, "p1", "item-attack", 1)
	repo := NewInventoryRepository(db, zerolog.Nop())

	id := stockID(t, db, "p1", "item-attack")
	err := repo.Consume(context.Background(), "p2", id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransferCreatesDestinationRecord(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedParticipant(t, db, "p2", "Bob", "")
	seedStock(t, db, "p1", "item-heal", 1)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-heal")
	if err := repo.Transfer(ctx, "p1", "p2", id); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	// Source record hit zero and was deleted.
	if q, _ := repo.GetQuantity(ctx, "p1", "item-heal"); q != 0 {
		t.Fatalf("source quantity = %d, want 0", q)
	}

	items, err := repo.GetByOwner(ctx, "p2")
	if err != nil {
		t.Fatalf("get destination inventory: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("destination records = %d, want 1", len(items))
	}
	if items[0].Quantity != 1 || items[0].ItemName != "Heal Ticket" {
		t.Fatalf("destination record = %+v, want quantity 1 with display metadata", items[0])
	}
}

func TestTransferMergesQuantities(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedParticipant(t, db, "p2", "Bob", "")
	seedStock(t, db, "p1", "item-heal", 2)
	seedStock(t, db, "p2", "item-heal", 3)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-heal")
	if err := repo.Transfer(ctx, "p1", "p2", id); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if q, _ := repo.GetQuantity(ctx, "p1", "item-heal"); q != 1 {
		t.Fatalf("source quantity = %d, want 1", q)
	}
	if q, _ := repo.GetQuantity(ctx, "p2", "item-heal"); q != 4 {
		t.Fatalf("destination quantity = %d, want 4 (merged)", q)
	}

	// Merged, not duplicated: one record per (owner, item).
	items, err := repo.GetByOwner(ctx, "p2")
	if err != nil {
		t.Fatalf("get destination inventory: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("destination records = %d, want 1", len(items))
	}
}

func TestTransferToSelf(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedStock(t, db, "p1", "item-heal", 2)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-heal")
	err := repo.Transfer(ctx, "p1", "p1", id)
	if !errors.Is(err, domain.ErrInvalidOperation) {
		t.Fatalf("err = %v, want ErrInvalidOperation", err)
	}

	if q, _ := repo.GetQuantity(ctx, "p1", "item-heal"); q != 2 {
		t.Fatalf("quantity = %d, want 2 (unchanged)", q)
	}
}

func TestTransferRespectsHoldingCap(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedParticipant(t, db, "p2", "Bob", "")
	seedStock(t, db, "p1", "item-defense", 3)
	seedStock(t, db, "p2", "item-defense", 10)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-defense")
	err := repo.Transfer(ctx, "p1", "p2", id)
	if !errors.Is(err, domain.ErrCapExceeded) {
		t.Fatalf("err = %v, want ErrCapExceeded", err)
	}

	// All-or-nothing: neither side moved.
	if q, _ := repo.GetQuantity(ctx, "p1", "item-defense"); q != 3 {
		t.Fatalf("source quantity = %d, want 3", q)
	}
	if q, _ := repo.GetQuantity(ctx, "p2", "item-defense"); q != 10 {
		t.Fatalf("destination quantity = %d, want 10", q)
	}
}

func TestTransferUncappedItemIgnoresCap(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedParticipant(t, db, "p2", "Bob", "")
	seedStock(t, db, "p1", "item-attack", 1)
	seedStock(t, db, "p2", "item-attack", 50)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-attack")
	if err := repo.Transfer(ctx, "p1", "p2", id); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if q, _ := repo.GetQuantity(ctx, "p2", "item-attack"); q != 51 {
		t.Fatalf("destination quantity = %d, want 51", q)
	}
}

func TestTransferUnknownDestination(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedStock(t, db, "p1", "item-heal", 1)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	id := stockID(t, db, "p1", "item-heal")
	err := repo.Transfer(ctx, "p1", "nobody", id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if q, _ := repo.GetQuantity(ctx, "p1", "item-heal"); q != 1 {
		t.Fatalf("source quantity = %d, want 1 (unchanged)", q)
	}
}

func TestConsumeDefense(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	seedStock(t, db, "p1", "item-defense", 1)
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	consumed, err := repo.ConsumeDefense(ctx, "p1")
	if err != nil {
		t.Fatalf("consume defense: %v", err)
	}
	if !consumed {
		t.Fatal("defense should have been consumed")
	}

	// The record hit zero and was removed.
	if q, _ := repo.GetQuantity(ctx, "p1", "item-defense"); q != 0 {
		t.Fatalf("defense quantity = %d, want 0", q)
	}

	consumed, err = repo.ConsumeDefense(ctx, "p1")
	if err != nil {
		t.Fatalf("consume defense again: %v", err)
	}
	if consumed {
		t.Fatal("no defense left, nothing should be consumed")
	}
}

func TestGrantMergesStock(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	repo := NewInventoryRepository(db, zerolog.Nop())
	ctx := context.Background()

	if err := repo.Grant(ctx, "p1", "item-attack", 2); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := repo.Grant(ctx, "p1", "item-attack", 3); err != nil {
		t.Fatalf("grant again: %v", err)
	}

	if q, _ := repo.GetQuantity(ctx, "p1", "item-attack"); q != 5 {
		t.Fatalf("quantity = %d, want 5", q)
	}

	items, err := repo.GetByOwner(ctx, "p1")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("records = %d, want 1 (merged)", len(items))
	}
}

func TestGrantUnknownItem(t *testing.T) {
	db := openTestDB(t)
	seedParticipant(t, db, "p1", "Alice", "")
	repo := NewInventoryRepository(db, zerolog.Nop())

	err := repo.Grant(context.Background(), "p1", "no-such-item", 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
