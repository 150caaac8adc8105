package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"battle-arena/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ParticipantRepository is the directory: identity, display name and
// team assignment. The battle core reads it; only the admin surface
// writes it.
type ParticipantRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewParticipantRepository(sqlDB *sql.DB, logger zerolog.Logger) *ParticipantRepository {
	return &ParticipantRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *ParticipantRepository) GetDisplayName(ctx context.Context, participantID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT display_name FROM participants WHERE id = ?`, participantID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("participant %s: %w", participantID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get display name: %w", err)
	}
	return name, nil
}

func (r *ParticipantRepository) GetTeam(ctx context.Context, participantID string) (string, error) {
	var team sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT team FROM participants WHERE id = ?`, participantID).Scan(&team)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("participant %s: %w", participantID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get team: %w", err)
	}
	return team.String, nil
}

func (r *ParticipantRepository) Create(ctx context.Context, id, displayName, team string) error {
	var teamValue any
	if team != "" {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE name = ?`, team).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("team %s: %w", team, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check team: %w", err)
		}
		teamValue = team
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (id, display_name, team, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, displayName, teamValue, now, now)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}

	r.logger.Info().
		Str("participant_id", id).
		Str("display_name", displayName).
		Str("team", team).
		Msg("participant created")
	return nil
}

func (r *ParticipantRepository) CreateTeam(ctx context.Context, name, color string) (*domain.Team, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		id, name, color, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	r.logger.Info().Str("team", name).Msg("team created")
	return &domain.Team{ID: id, Name: name, Color: color, CreatedAt: now}, nil
}

func (r *ParticipantRepository) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.color, t.created_at,
		       (SELECT COUNT(*) FROM participants p WHERE p.team = t.name)
		FROM teams t
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.MemberCount); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}
	return teams, nil
}
