package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"battle-arena/internal/config"
	"battle-arena/internal/database"
	"battle-arena/internal/domain"

	"github.com/rs/zerolog"
)

// BattleRepository owns the per-participant injury counter. All
// mutations go through single-transaction read-modify-write so
// concurrent deltas against the same participant serialize instead of
// losing updates.
type BattleRepository struct {
	db        *sql.DB
	logger    zerolog.Logger
	threshold int
}

func NewBattleRepository(sqlDB *sql.DB, cfg *config.Config, logger zerolog.Logger) *BattleRepository {
	return &BattleRepository{
		db:        sqlDB,
		logger:    logger,
		threshold: cfg.EliminationThreshold,
	}
}

// ApplyInjuryDelta adds delta to the participant's injury count,
// clamping at zero, and recomputes the elimination flag in the same
// transaction. The battle row is created on first write. Returns the
// new injury count.
func (r *BattleRepository) ApplyInjuryDelta(ctx context.Context, participantID string, delta int) (int, error) {
	var newInjuries int

	err := database.Atomically(ctx, r.db, func(tx *sql.Tx) error {
		if err := participantExists(tx, participantID); err != nil {
			return err
		}

		var current int
		err := tx.QueryRow(`SELECT injuries FROM battle_status WHERE participant_id = ?`, participantID).Scan(&current)
		if err == sql.ErrNoRows {
			current = 0
		} else if err != nil {
			return fmt.Errorf("failed to read injuries: %w", err)
		}

		newInjuries = current + delta
		if newInjuries < 0 {
			newInjuries = 0
		}

		return r.writeStatus(tx, participantID, newInjuries)
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug().
		Str("participant_id", participantID).
		Int("delta", delta).
		Int("injuries", newInjuries).
		Bool("is_eliminated", newInjuries >= r.threshold).
		Msg("injury delta applied")

	return newInjuries, nil
}

// ResetInjuries sets the participant's injuries to zero in one atomic
// step and returns the count that was cleared. Unlike a read-then-delta
// round trip through the caller, this cannot race with a concurrent
// delta.
func (r *BattleRepository) ResetInjuries(ctx context.Context, participantID string) (int, error) {
	var cleared int

	err := database.Atomically(ctx, r.db, func(tx *sql.Tx) error {
		if err := participantExists(tx, participantID); err != nil {
			return err
		}

		err := tx.QueryRow(`SELECT injuries FROM battle_status WHERE participant_id = ?`, participantID).Scan(&cleared)
		if err == sql.ErrNoRows {
			cleared = 0
		} else if err != nil {
			return fmt.Errorf("failed to read injuries: %w", err)
		}

		return r.writeStatus(tx, participantID, 0)
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug().
		Str("participant_id", participantID).
		Int("cleared", cleared).
		Msg("injuries reset")

	return cleared, nil
}

// ApplyTeamInjuryDelta applies delta to every current member of the
// team. Each member's update is its own transaction: a failure partway
// through leaves earlier updates applied. The result makes that
// partial outcome explicit.
func (r *BattleRepository) ApplyTeamInjuryDelta(ctx context.Context, teamName string, delta int) (domain.TeamDeltaResult, error) {
	members, err := r.GetTeamMembers(ctx, teamName)
	if err != nil {
		return domain.TeamDeltaResult{}, err
	}

	var result domain.TeamDeltaResult
	for _, member := range members {
		if _, err := r.ApplyInjuryDelta(ctx, member.ID, delta); err != nil {
			r.logger.Error().Err(err).
				Str("participant_id", member.ID).
				Str("team", teamName).
				Msg("team injury update failed for member")
			result.FailedParticipantIDs = append(result.FailedParticipantIDs, member.ID)
			continue
		}
		result.AffectedCount++
	}

	return result, nil
}

func (r *BattleRepository) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.display_name, COALESCE(p.team, ''), COALESCE(b.injuries, 0),
		       b.last_updated, p.created_at, p.updated_at
		FROM participants p
		LEFT JOIN battle_status b ON b.participant_id = p.id
		WHERE p.id = ?`, participantID)

	p, err := r.scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("participant %s: %w", participantID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (r *BattleRepository) GetTeamMembers(ctx context.Context, teamName string) ([]domain.Participant, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE name = ?`, teamName).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("team %s: %w", teamName, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check team: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.display_name, COALESCE(p.team, ''), COALESCE(b.injuries, 0),
		       b.last_updated, p.created_at, p.updated_at
		FROM participants p
		LEFT JOIN battle_status b ON b.participant_id = p.id
		WHERE p.team = ?
		ORDER BY p.display_name`, teamName)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	return r.collectParticipants(rows)
}

func (r *BattleRepository) GetActiveParticipants(ctx context.Context) ([]domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.display_name, COALESCE(p.team, ''), COALESCE(b.injuries, 0),
		       b.last_updated, p.created_at, p.updated_at
		FROM participants p
		LEFT JOIN battle_status b ON b.participant_id = p.id
		WHERE COALESCE(b.injuries, 0) < ?
		ORDER BY p.display_name`, r.threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}
	defer rows.Close()

	return r.collectParticipants(rows)
}

func (r *BattleRepository) writeStatus(tx *sql.Tx, participantID string, injuries int) error {
	_, err := tx.Exec(`
		INSERT INTO battle_status (participant_id, injuries, is_eliminated, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (participant_id) DO UPDATE SET
			injuries = excluded.injuries,
			is_eliminated = excluded.is_eliminated,
			last_updated = excluded.last_updated`,
		participantID, injuries, injuries >= r.threshold, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write battle status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *BattleRepository) scanParticipant(row rowScanner) (*domain.Participant, error) {
	var p domain.Participant
	var lastUpdated sql.NullTime
	err := row.Scan(&p.ID, &p.DisplayName, &p.Team, &p.Injuries, &lastUpdated, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastUpdated.Valid {
		p.LastUpdated = lastUpdated.Time
	} else {
		p.LastUpdated = p.CreatedAt
	}
	p.IsEliminated = p.Injuries >= r.threshold
	return &p, nil
}

func (r *BattleRepository) collectParticipants(rows *sql.Rows) ([]domain.Participant, error) {
	var participants []domain.Participant
	for rows.Next() {
		p, err := r.scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func participantExists(tx *sql.Tx, participantID string) error {
	var one int
	err := tx.QueryRow(`SELECT 1 FROM participants WHERE id = ?`, participantID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("participant %s: %w", participantID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	return nil
}
