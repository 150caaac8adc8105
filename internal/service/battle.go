package service

import (
	"context"
	"fmt"
	"time"

	"battle-arena/internal/api"
	"battle-arena/internal/constants"
	"battle-arena/internal/domain"
	"battle-arena/internal/notify"
	"battle-arena/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// BattleService resolves item effects: it validates preconditions,
// drives the battle state store and inventory ledger, and reports a
// structured outcome. The acting participant's item is consumed only
// after its effect applied successfully.
type BattleService struct {
	battle       *repository.BattleRepository
	inventory    *repository.InventoryRepository
	participants *repository.ParticipantRepository
	items        *repository.ItemRepository
	logs         *repository.BattleLogRepository
	hub          *notify.Hub
	webhook      *api.WebhookNotifier
	logger       zerolog.Logger
}

func NewBattleService(
	battle *repository.BattleRepository,
	inventory *repository.InventoryRepository,
	participants *repository.ParticipantRepository,
	items *repository.ItemRepository,
	logs *repository.BattleLogRepository,
	hub *notify.Hub,
	webhook *api.WebhookNotifier,
	logger zerolog.Logger,
) *BattleService {
	return &BattleService{
		battle:       battle,
		inventory:    inventory,
		participants: participants,
		items:        items,
		logs:         logs,
		hub:          hub,
		webhook:      webhook,
		logger:       logger,
	}
}

// UseItem is the resolver entry point: actorID spends one unit of the
// named inventory record against targetID (empty for untargeted kinds).
func (s *BattleService) UseItem(ctx context.Context, actorID, inventoryItemID, targetID string) (*domain.EffectResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.logger.Info().
		Str("actor_id", actorID).
		Str("inventory_item_id", inventoryItemID).
		Str("target_id", targetID).
		Msg("resolving item use")

	actor, err := s.battle.GetParticipant(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.IsEliminated {
		return nil, fmt.Errorf("eliminated participants cannot act: %w", domain.ErrPermission)
	}

	stock, err := s.inventory.GetByID(ctx, inventoryItemID)
	if err != nil {
		return nil, err
	}
	if stock.OwnerID != actorID {
		return nil, fmt.Errorf("inventory item %s: %w", inventoryItemID, domain.ErrNotFound)
	}

	item, err := s.items.Get(ctx, stock.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Effect.Valid() {
		return nil, fmt.Errorf("item %s has unknown effect %q: %w", item.ID, item.Effect, domain.ErrInvalidOperation)
	}
	if item.Effect == domain.EffectDefense {
		return nil, fmt.Errorf("defense items work automatically while held: %w", domain.ErrInvalidOperation)
	}
	if item.Effect.RequiresTarget() && targetID == "" {
		return nil, fmt.Errorf("effect %s: %w", item.Effect, domain.ErrMissingTarget)
	}

	result, err := s.execute(ctx, item.Effect, actorID, targetID)
	if err != nil {
		return nil, err
	}

	// Only a fully applied effect costs the actor their item.
	if err := s.inventory.Consume(ctx, actorID, inventoryItemID); err != nil {
		s.logger.Error().Err(err).
			Str("actor_id", actorID).
			Str("inventory_item_id", inventoryItemID).
			Msg("effect applied but item consumption failed")
		return nil, fmt.Errorf("failed to consume item after effect: %w", err)
	}

	s.publish(result)

	s.logger.Info().
		Str("actor_id", actorID).
		Str("effect", string(result.Effect)).
		Str("outcome", string(result.OutcomeKind)).
		Int("affected", len(result.AffectedParticipantIDs)).
		Int("blocked", len(result.BlockedParticipantIDs)).
		Int("failed", len(result.FailedParticipantIDs)).
		Msg("item use resolved")

	return result, nil
}

func (s *BattleService) execute(ctx context.Context, effect domain.EffectKind, actorID, targetID string) (*domain.EffectResult, error) {
	switch effect {
	case domain.EffectAttack:
		return s.attack(ctx, actorID, targetID)
	case domain.EffectSpecialAttack:
		return s.specialAttack(ctx, actorID, targetID)
	case domain.EffectHeal:
		return s.heal(ctx, actorID, targetID)
	case domain.EffectSpecialHeal:
		return s.specialHeal(ctx, actorID, targetID)
	default:
		return nil, fmt.Errorf("unknown effect %q: %w", effect, domain.ErrInvalidOperation)
	}
}

// attack applies +1 injury unless the target holds a defense item, in
// which case one unit of it is consumed instead and the injury count
// stays untouched.
func (s *BattleService) attack(ctx context.Context, actorID, targetID string) (*domain.EffectResult, error) {
	target, err := s.battle.GetParticipant(ctx, targetID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.inventory.ConsumeDefense(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &domain.EffectResult{
			OutcomeKind:           domain.OutcomeBlocked,
			Effect:                domain.EffectAttack,
			ActorID:               actorID,
			BlockedParticipantIDs: []string{targetID},
			Message:               fmt.Sprintf("%s blocked the attack with a defense item! defense -1", target.DisplayName),
		}, nil
	}

	if _, err := s.battle.ApplyInjuryDelta(ctx, targetID, 1); err != nil {
		return nil, err
	}

	return &domain.EffectResult{
		OutcomeKind:            domain.OutcomeApplied,
		Effect:                 domain.EffectAttack,
		ActorID:                actorID,
		AffectedParticipantIDs: []string{targetID},
		Message:                fmt.Sprintf("Attacked %s! injuries +1", target.DisplayName),
	}, nil
}

// specialAttack runs the attack sequence independently against every
// current member of the target's team. Each member's block-or-injure
// step is its own atomic unit: a member failing leaves the others'
// results in place, reported through the failed list.
func (s *BattleService) specialAttack(ctx context.Context, actorID, targetID string) (*domain.EffectResult, error) {
	target, err := s.battle.GetParticipant(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Team == "" {
		return nil, fmt.Errorf("target %s has no team: %w", targetID, domain.ErrNotFound)
	}

	members, err := s.battle.GetTeamMembers(ctx, target.Team)
	if err != nil {
		return nil, err
	}

	result := &domain.EffectResult{
		OutcomeKind: domain.OutcomeApplied,
		Effect:      domain.EffectSpecialAttack,
		ActorID:     actorID,
	}

	for _, member := range members {
		blocked, err := s.inventory.ConsumeDefense(ctx, member.ID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("participant_id", member.ID).
				Str("team", target.Team).
				Msg("special attack failed for member")
			result.FailedParticipantIDs = append(result.FailedParticipantIDs, member.ID)
			continue
		}
		if blocked {
			result.BlockedParticipantIDs = append(result.BlockedParticipantIDs, member.ID)
			continue
		}
		if _, err := s.battle.ApplyInjuryDelta(ctx, member.ID, 1); err != nil {
			s.logger.Error().Err(err).
				Str("participant_id", member.ID).
				Str("team", target.Team).
				Msg("special attack failed for member")
			result.FailedParticipantIDs = append(result.FailedParticipantIDs, member.ID)
			continue
		}
		result.AffectedParticipantIDs = append(result.AffectedParticipantIDs, member.ID)
	}

	if len(result.AffectedParticipantIDs) == 0 && len(result.BlockedParticipantIDs) > 0 {
		result.OutcomeKind = domain.OutcomeBlocked
	}

	message := fmt.Sprintf("Attacked all of team %s!", target.Team)
	if n := len(result.BlockedParticipantIDs); n > 0 {
		message += fmt.Sprintf(" %d blocked with defense items,", n)
	}
	if n := len(result.AffectedParticipantIDs); n > 0 {
		message += fmt.Sprintf(" %d took injuries +1", n)
	}
	if n := len(result.FailedParticipantIDs); n > 0 {
		message += fmt.Sprintf(" (%d updates failed)", n)
	}
	result.Message = message

	return result, nil
}

func (s *BattleService) heal(ctx context.Context, actorID, targetID string) (*domain.EffectResult, error) {
	target, err := s.battle.GetParticipant(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := s.battle.ApplyInjuryDelta(ctx, targetID, -1); err != nil {
		return nil, err
	}

	return &domain.EffectResult{
		OutcomeKind:            domain.OutcomeApplied,
		Effect:                 domain.EffectHeal,
		ActorID:                actorID,
		AffectedParticipantIDs: []string{targetID},
		Message:                fmt.Sprintf("Healed %s! injuries -1", target.DisplayName),
	}, nil
}

// specialHeal clears the target's injuries in one atomic step rather
// than a read-then-subtract round trip that could race with concurrent
// deltas.
func (s *BattleService) specialHeal(ctx context.Context, actorID, targetID string) (*domain.EffectResult, error) {
	target, err := s.battle.GetParticipant(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := s.battle.ResetInjuries(ctx, targetID); err != nil {
		return nil, err
	}

	return &domain.EffectResult{
		OutcomeKind:            domain.OutcomeFullyHealed,
		Effect:                 domain.EffectSpecialHeal,
		ActorID:                actorID,
		AffectedParticipantIDs: []string{targetID},
		Message:                fmt.Sprintf("Fully healed %s! all injuries cleared", target.DisplayName),
	}, nil
}

// publish fans the result out to the battle log, the websocket hub and
// the optional webhook sink. Fanout is best-effort and never fails the
// resolved effect.
func (s *BattleService) publish(result *domain.EffectResult) {
	targetID := ""
	if len(result.AffectedParticipantIDs) > 0 {
		targetID = result.AffectedParticipantIDs[0]
	} else if len(result.BlockedParticipantIDs) > 0 {
		targetID = result.BlockedParticipantIDs[0]
	}

	event := notify.Event{
		Type:         string(result.Effect),
		SourceUserID: result.ActorID,
		TargetUserID: targetID,
		Message:      result.Message,
		CreatedAt:    time.Now(),
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
		defer cancel()
		return s.logs.Create(ctx, &domain.BattleLog{
			SourceUserID: event.SourceUserID,
			TargetUserID: event.TargetUserID,
			Type:         event.Type,
			Message:      event.Message,
			CreatedAt:    event.CreatedAt,
		})
	})
	g.Go(func() error {
		s.hub.Broadcast(event)
		return nil
	})
	g.Go(func() error {
		return s.webhook.Notify(event)
	})

	go func() {
		if err := g.Wait(); err != nil {
			s.logger.Warn().Err(err).Msg("battle event fanout failed")
		}
	}()
}

// GetParticipant exposes the read-only battle snapshot for one id.
func (s *BattleService) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.battle.GetParticipant(ctx, participantID)
}

func (s *BattleService) GetActiveParticipants(ctx context.Context) ([]domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.battle.GetActiveParticipants(ctx)
}

func (s *BattleService) GetTeamMembers(ctx context.Context, teamName string) ([]domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.battle.GetTeamMembers(ctx, teamName)
}

// ApplyTeamInjuryDelta is the admin surface for team-wide adjustments.
// Member updates are independent; the result reports partial failures.
func (s *BattleService) ApplyTeamInjuryDelta(ctx context.Context, teamName string, delta int) (domain.TeamDeltaResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	result, err := s.battle.ApplyTeamInjuryDelta(ctx, teamName, delta)
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Str("team", teamName).
		Int("delta", delta).
		Int("affected", result.AffectedCount).
		Int("failed", len(result.FailedParticipantIDs)).
		Msg("team injury delta applied")
	return result, nil
}

func (s *BattleService) GetLogs(ctx context.Context, logType string, limit int) ([]domain.BattleLog, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.logs.List(ctx, logType, limit)
}
