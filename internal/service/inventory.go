package service

import (
	"context"
	"fmt"

	"battle-arena/internal/constants"
	"battle-arena/internal/domain"
	"battle-arena/internal/repository"

	"github.com/rs/zerolog"
)

// InventoryService orchestrates the inventory ledger for callers
// outside the resolver: transfers between owners and admin grants.
type InventoryService struct {
	inventory *repository.InventoryRepository
	items     *repository.ItemRepository
	logger    zerolog.Logger
}

func NewInventoryService(
	inventory *repository.InventoryRepository,
	items *repository.ItemRepository,
	logger zerolog.Logger,
) *InventoryService {
	return &InventoryService{
		inventory: inventory,
		items:     items,
		logger:    logger,
	}
}

// Transfer moves one unit between owners, enforcing the per-item
// holding cap. Both sides mutate in one atomic unit or not at all.
func (s *InventoryService) Transfer(ctx context.Context, fromID, toID, inventoryItemID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if fromID == toID {
		return fmt.Errorf("cannot transfer to self: %w", domain.ErrInvalidOperation)
	}

	if err := s.inventory.Transfer(ctx, fromID, toID, inventoryItemID); err != nil {
		return err
	}

	s.logger.Info().
		Str("from_id", fromID).
		Str("to_id", toID).
		Str("inventory_item_id", inventoryItemID).
		Msg("transfer completed")
	return nil
}

// Grant adds stock to an owner, for purchases and admin grants.
func (s *InventoryService) Grant(ctx context.Context, ownerID, itemID string, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.inventory.Grant(ctx, ownerID, itemID, quantity)
}

func (s *InventoryService) GetByOwner(ctx context.Context, ownerID string) ([]domain.InventoryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.inventory.GetByOwner(ctx, ownerID)
}

func (s *InventoryService) GetQuantity(ctx context.Context, ownerID, itemID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.inventory.GetQuantity(ctx, ownerID, itemID)
}

func (s *InventoryService) ListItems(ctx context.Context) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.items.List(ctx)
}
