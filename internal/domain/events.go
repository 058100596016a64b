package domain

import "time"

// Event types
const (
	EventTypeLockCreated   = "lock.created"
	EventTypeLockWithdrawn = "lock.withdrawn"
	EventTypeLockExtended  = "lock.extended"

	EventTypeDrawEntered    = "draw.entered"
	EventTypeDrawCompleted  = "draw.completed"
	EventTypeDrawFeeChanged = "draw.fee_changed"

	EventTypeStakeCreated            = "stake.created"
	EventTypeStakeRewardsClaimed     = "stake.rewards_claimed"
	EventTypeStakeUnstaked           = "stake.unstaked"
	EventTypeStakeRateChanged        = "stake.rate_changed"
	EventTypeStakeFunded             = "stake.funded"
	EventTypeStakeEmergencyWithdrawn = "stake.emergency_withdrawn"
)

// Aggregate types
const (
	AggregateTypeLock  = "lock"
	AggregateTypeDraw  = "draw"
	AggregateTypeStake = "stake"
)

// OutboxEvent represents an event to be published. It is written in the
// same transaction as the mutation it describes.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// LockCreatedEvent payload
type LockCreatedEvent struct {
	EntryID     string `json:"entry_id"`
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
	Deadline    string `json:"deadline"`
}

// LockWithdrawnEvent payload
type LockWithdrawnEvent struct {
	EntryID     string `json:"entry_id"`
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

// LockExtendedEvent payload
type LockExtendedEvent struct {
	EntryID     string `json:"entry_id"`
	OldDeadline string `json:"old_deadline"`
	NewDeadline string `json:"new_deadline"`
}

// DrawEnteredEvent payload
type DrawEnteredEvent struct {
	EntryID string `json:"entry_id"`
	Round   int64  `json:"round"`
	Entrant string `json:"entrant"`
	Amount  string `json:"amount"`
}

// DrawCompletedEvent payload
type DrawCompletedEvent struct {
	Round     int64  `json:"round"`
	Winner    string `json:"winner"`
	Prize     string `json:"prize"`
	PoolSize  int    `json:"pool_size"`
	NextRound int64  `json:"next_round"`
}

// StakeUnstakedEvent payload
type StakeUnstakedEvent struct {
	Address   string `json:"address"`
	Principal string `json:"principal"`
	Reward    string `json:"reward"`
}

// StakeRateChangedEvent payload
type StakeRateChangedEvent struct {
	OldRateBps int64 `json:"old_rate_bps"`
	NewRateBps int64 `json:"new_rate_bps"`
}
