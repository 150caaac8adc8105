package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

// TxRetryBudget bounds how often an atomic write is retried when the
// database reports a busy/locked conflict before the operation fails
// with a terminal concurrency error.
const (
	TxRetryBudget  = 5
	TxRetryBackoff = 20 * time.Millisecond
)

const (
	DefaultEliminationThreshold = 4
	DefaultDefenseHoldingCap    = 10
)

const (
	BattleLogDefaultLimit = 100
	BattleLogMaxLimit     = 500
)

const (
	WebhookTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)
