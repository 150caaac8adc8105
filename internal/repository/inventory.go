package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"battle-arena/internal/database"
	"battle-arena/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// InventoryRepository owns per-participant item stock. Quantities only
// change inside transactions; a stock decremented to zero is deleted in
// the same transaction, so no row ever holds quantity <= 0.
type InventoryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewInventoryRepository(sqlDB *sql.DB, logger zerolog.Logger) *InventoryRepository {
	return &InventoryRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Consume removes one unit of the owner's inventory record: quantity 1
// deletes the row, anything higher decrements it.
func (r *InventoryRepository) Consume(ctx context.Context, ownerID, inventoryItemID string) error {
	err := database.Atomically(ctx, r.db, func(tx *sql.Tx) error {
		return decrementOrDelete(tx, ownerID, inventoryItemID)
	})
	if err != nil {
		return err
	}

	r.logger.Debug().
		Str("owner_id", ownerID).
		Str("inventory_item_id", inventoryItemID).
		Msg("item consumed")
	return nil
}

// Transfer moves one unit from one owner to another in a single
// transaction. When the destination already stocks the same item kind
// the quantities merge; otherwise a new record is created carrying the
// display metadata over. A holding cap on the item makes the whole
// transfer fail without mutating either side.
func (r *InventoryRepository) Transfer(ctx context.Context, fromOwnerID, toOwnerID, inventoryItemID string) error {
	if fromOwnerID == toOwnerID {
		return fmt.Errorf("cannot transfer to self: %w", domain.ErrInvalidOperation)
	}

	err := database.Atomically(ctx, r.db, func(tx *sql.Tx) error {
		if err := participantExists(tx, toOwnerID); err != nil {
			return err
		}

		var (
			itemID   string
			itemName string
			quantity int
		)
		err := tx.QueryRow(`
			SELECT item_id, item_name, quantity FROM inventory
			WHERE id = ? AND owner_id = ?`, inventoryItemID, fromOwnerID).
			Scan(&itemID, &itemName, &quantity)
		if err == sql.ErrNoRows {
			return fmt.Errorf("inventory item %s: %w", inventoryItemID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read source inventory: %w", err)
		}

		var maxHolding int
		if err := tx.QueryRow(`SELECT max_holding FROM items WHERE id = ?`, itemID).Scan(&maxHolding); err != nil {
			return fmt.Errorf("failed to read item cap: %w", err)
		}

		var destQuantity int
		err = tx.QueryRow(`
			SELECT quantity FROM inventory WHERE owner_id = ? AND item_id = ?`,
			toOwnerID, itemID).Scan(&destQuantity)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read destination inventory: %w", err)
		}

		if maxHolding > 0 && destQuantity+1 > maxHolding {
			return fmt.Errorf("%s would exceed holding cap %d: %w", itemName, maxHolding, domain.ErrCapExceeded)
		}

		if quantity <= 1 {
			if _, err := tx.Exec(`DELETE FROM inventory WHERE id = ?`, inventoryItemID); err != nil {
				return fmt.Errorf("failed to delete source inventory: %w", err)
			}
		} else {
			if _, err := tx.Exec(`
				UPDATE inventory SET quantity = quantity - 1, updated_at = ? WHERE id = ?`,
				time.Now(), inventoryItemID); err != nil {
				return fmt.Errorf("failed to decrement source inventory: %w", err)
			}
		}

		return upsertStock(tx, toOwnerID, itemID, itemName, 1)
	})
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("from_owner_id", fromOwnerID).
		Str("to_owner_id", toOwnerID).
		Str("inventory_item_id", inventoryItemID).
		Msg("item transferred")
	return nil
}

// ConsumeDefense atomically consumes one unit of any defense-kind item
// the participant holds. Reports false without error when none is held.
func (r *InventoryRepository) ConsumeDefense(ctx context.Context, ownerID string) (bool, error) {
	var consumed bool

	err := database.Atomically(ctx, r.db, func(tx *sql.Tx) error {
		consumed = false

		var invID string
		var quantity int
		err := tx.QueryRow(`
			SELECT inv.id, inv.quantity
			FROM inventory inv
			JOIN items i ON i.id = inv.item_id
			WHERE inv.owner_id = ? AND i.effect = ?
			ORDER BY inv.received_at
			LIMIT 1`, ownerID, string(domain.EffectDefense)).Scan(&invID, &quantity)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up defense item: %w", err)
		}

		if quantity <= 1 {
			if _, err := tx.Exec(`DELETE FROM inventory WHERE id = ?`, invID); err != nil {
				return fmt.Errorf("failed to delete defense item: %w", err)
			}
		} else {
			if _, err := tx.Exec(`
				UPDATE inventory SET quantity = quantity - 1, updated_at = ? WHERE id = ?`,
				time.Now(), invID); err != nil {
				return fmt.Errorf("failed to decrement defense item: %w", err)
			}
		}

		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if consumed {
		r.logger.Debug().Str("owner_id", ownerID).Msg("defense item consumed")
	}
	return consumed, nil
}

// Grant adds quantity units of a catalog item to the owner's stock,
// merging with an existing record for the same item kind.
func (r *InventoryRepository) Grant(ctx context.Context, ownerID, itemID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("grant quantity must be >= 1: %w", domain.ErrInvalidOperation)
	}

	err := database.Atomically(ctx, r.db, func(tx *sql.Tx) error {
		if err := participantExists(tx, ownerID); err != nil {
			return err
		}

		var itemName string
		err := tx.QueryRow(`SELECT name FROM items WHERE id = ?`, itemID).Scan(&itemName)
		if err == sql.ErrNoRows {
			return fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read item: %w", err)
		}

		return upsertStock(tx, ownerID, itemID, itemName, quantity)
	})
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("owner_id", ownerID).
		Str("item_id", itemID).
		Int("quantity", quantity).
		Msg("item granted")
	return nil
}

func (r *InventoryRepository) GetByID(ctx context.Context, inventoryItemID string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, item_id, item_name, quantity, received_at, updated_at
		FROM inventory WHERE id = ?`, inventoryItemID).
		Scan(&item.ID, &item.OwnerID, &item.ItemID, &item.ItemName, &item.Quantity, &item.ReceivedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("inventory item %s: %w", inventoryItemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return &item, nil
}

func (r *InventoryRepository) GetByOwner(ctx context.Context, ownerID string) ([]domain.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, item_id, item_name, quantity, received_at, updated_at
		FROM inventory WHERE owner_id = ?
		ORDER BY received_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.ItemID, &item.ItemName, &item.Quantity, &item.ReceivedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory: %w", err)
	}
	return items, nil
}

// GetQuantity returns the owner's stock of a catalog item, zero when
// no record exists.
func (r *InventoryRepository) GetQuantity(ctx context.Context, ownerID, itemID string) (int, error) {
	var quantity int
	err := r.db.QueryRowContext(ctx, `
		SELECT quantity FROM inventory WHERE owner_id = ? AND item_id = ?`,
		ownerID, itemID).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get quantity: %w", err)
	}
	return quantity, nil
}

func decrementOrDelete(tx *sql.Tx, ownerID, inventoryItemID string) error {
	var quantity int
	err := tx.QueryRow(`
		SELECT quantity FROM inventory WHERE id = ? AND owner_id = ?`,
		inventoryItemID, ownerID).Scan(&quantity)
	if err == sql.ErrNoRows {
		return fmt.Errorf("inventory item %s: %w", inventoryItemID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read inventory item: %w", err)
	}

	if quantity <= 1 {
		if _, err := tx.Exec(`DELETE FROM inventory WHERE id = ?`, inventoryItemID); err != nil {
			return fmt.Errorf("failed to delete inventory item: %w", err)
		}
		return nil
	}

	if _, err := tx.Exec(`
		UPDATE inventory SET quantity = quantity - 1, updated_at = ? WHERE id = ?`,
		time.Now(), inventoryItemID); err != nil {
		return fmt.Errorf("failed to decrement inventory item: %w", err)
	}
	return nil
}

func upsertStock(tx *sql.Tx, ownerID, itemID, itemName string, quantity int) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO inventory (id, owner_id, item_id, item_name, quantity, received_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, item_id) DO UPDATE SET
			quantity = inventory.quantity + excluded.quantity,
			updated_at = excluded.updated_at`,
		id, ownerID, itemID, itemName, quantity, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory item: %w", err)
	}
	return nil
}
