package domain

import (
	"time"
)

// EffectKind is an item's declared battle effect.
type EffectKind string

const (
	EffectAttack        EffectKind = "attack"
	EffectSpecialAttack EffectKind = "special_attack"
	EffectDefense       EffectKind = "defense"
	EffectHeal          EffectKind = "heal"
	EffectSpecialHeal   EffectKind = "special_heal"
)

func (e EffectKind) Valid() bool {
	switch e {
	case EffectAttack, EffectSpecialAttack, EffectDefense, EffectHeal, EffectSpecialHeal:
		return true
	}
	return false
}

// RequiresTarget reports whether using an item of this kind needs a
// target participant. Defense items are never used directly.
func (e EffectKind) RequiresTarget() bool {
	return e != EffectDefense
}

type Participant struct {
	ID           string
	DisplayName  string
	Team         string // empty when unassigned
	Injuries     int
	IsEliminated bool
	LastUpdated  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Team struct {
	ID          string
	Name        string
	Color       string
	MemberCount int
	CreatedAt   time.Time
}

// Item is a catalog entry. MaxHolding of 0 means uncapped.
type Item struct {
	ID         string
	Name       string
	Effect     EffectKind
	MaxHolding int
	CreatedAt  time.Time
}

// InventoryItem is one owner's stock of a catalog item. Quantity is
// always >= 1; a stock that reaches 0 is deleted, never stored.
type InventoryItem struct {
	ID         string
	OwnerID    string
	ItemID     string
	ItemName   string
	Quantity   int
	ReceivedAt time.Time
	UpdatedAt  time.Time
}

type OutcomeKind string

const (
	OutcomeBlocked     OutcomeKind = "blocked"
	OutcomeApplied     OutcomeKind = "applied"
	OutcomeFullyHealed OutcomeKind = "fully_healed"
)

// EffectResult is what a resolved item use reports back to the caller.
// For team-wide effects the blocked/failed lists make the per-member
// partial outcome explicit.
type EffectResult struct {
	OutcomeKind            OutcomeKind
	Effect                 EffectKind
	ActorID                string
	AffectedParticipantIDs []string
	BlockedParticipantIDs  []string
	FailedParticipantIDs   []string
	Message                string
}

// TeamDeltaResult reports a team-wide injury update. Member updates are
// independent transactions: AffectedCount members were updated even when
// FailedParticipantIDs is non-empty.
type TeamDeltaResult struct {
	AffectedCount        int
	FailedParticipantIDs []string
}

type BattleLog struct {
	ID           string
	SourceUserID string
	TargetUserID string
	Type         string
	Message      string
	CreatedAt    time.Time
}
