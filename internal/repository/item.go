package repository

import (
	"context"
	"database/sql"
	"fmt"

	"battle-arena/internal/config"
	"battle-arena/internal/domain"

	"github.com/rs/zerolog"
)

// ItemRepository reads the item catalog: each entry declares its battle
// effect and an optional per-owner holding cap.
type ItemRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewItemRepository(sqlDB *sql.DB, logger zerolog.Logger) *ItemRepository {
	return &ItemRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *ItemRepository) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	var effect string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, effect, max_holding, created_at FROM items WHERE id = ?`, itemID).
		Scan(&item.ID, &item.Name, &effect, &item.MaxHolding, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	item.Effect = domain.EffectKind(effect)
	return &item, nil
}

func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, effect, max_holding, created_at FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		var effect string
		if err := rows.Scan(&item.ID, &item.Name, &effect, &item.MaxHolding, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Effect = domain.EffectKind(effect)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// ApplyConfiguredCaps pushes the configured defense holding cap onto
// the catalog so a deployment can tune it without a migration.
func (r *ItemRepository) ApplyConfiguredCaps(ctx context.Context, cfg *config.Config) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET max_holding = ? WHERE effect = ?`,
		cfg.DefenseHoldingCap, string(domain.EffectDefense))
	if err != nil {
		return fmt.Errorf("failed to apply configured caps: %w", err)
	}

	r.logger.Info().
		Int("defense_holding_cap", cfg.DefenseHoldingCap).
		Msg("catalog holding caps applied")
	return nil
}
