package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"battle-arena/internal/constants"
	"battle-arena/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// BattleLogRepository persists human-readable battle events for the
// admin console feed. Log writes are best-effort from the resolver's
// point of view; a lost log entry never affects battle state.
type BattleLogRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBattleLogRepository(sqlDB *sql.DB, logger zerolog.Logger) *BattleLogRepository {
	return &BattleLogRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *BattleLogRepository) Create(ctx context.Context, log *domain.BattleLog) error {
	id := log.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO battle_logs (id, source_user_id, target_user_id, type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, log.SourceUserID, log.TargetUserID, log.Type, log.Message, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create battle log: %w", err)
	}
	return nil
}

func (r *BattleLogRepository) List(ctx context.Context, logType string, limit int) ([]domain.BattleLog, error) {
	if limit <= 0 {
		limit = constants.BattleLogDefaultLimit
	}
	if limit > constants.BattleLogMaxLimit {
		limit = constants.BattleLogMaxLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if logType != "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, source_user_id, target_user_id, type, message, created_at
			FROM battle_logs WHERE type = ?
			ORDER BY created_at DESC LIMIT ?`, logType, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, source_user_id, target_user_id, type, message, created_at
			FROM battle_logs
			ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list battle logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.BattleLog
	for rows.Next() {
		var l domain.BattleLog
		if err := rows.Scan(&l.ID, &l.SourceUserID, &l.TargetUserID, &l.Type, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan battle log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate battle logs: %w", err)
	}
	return logs, nil
}
