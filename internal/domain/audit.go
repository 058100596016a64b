package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	Caller       string // Who performed the action
	Action       string // What action (lock.withdraw, draw.pick, etc.)
	ResourceType string // Type of resource (entry, round, stake)
	ResourceID   string // ID of the resource
	AfterState   JSON   // State after the action
	Status       string // success, failure, error
	ErrorMessage string // If status=error, the error message
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Lock actions
	AuditActionLockCreate   AuditAction = "lock.create"
	AuditActionLockWithdraw AuditAction = "lock.withdraw"
	AuditActionLockExtend   AuditAction = "lock.extend"

	// Draw actions
	AuditActionDrawPick   AuditAction = "draw.pick"
	AuditActionDrawSetFee AuditAction = "draw.set_fee"

	// Stake actions
	AuditActionStakeSetRate           AuditAction = "stake.set_rate"
	AuditActionStakeFund              AuditAction = "stake.fund"
	AuditActionStakeEmergencyWithdraw AuditAction = "stake.emergency_withdraw"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	Caller       string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
