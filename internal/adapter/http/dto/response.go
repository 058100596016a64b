package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// EntryResponse represents a custody entry in API responses.
type EntryResponse struct {
	ID          string          `json:"id"`
	Policy      string          `json:"policy"`
	Beneficiary string          `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
	Disbursed   bool            `json:"disbursed"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Round       *int64          `json:"round,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:          e.ID,
		Policy:      string(e.Policy),
		Beneficiary: e.Beneficiary.String(),
		Amount:      e.Amount,
		Disbursed:   e.Disbursed,
		Deadline:    e.Deadline,
		Round:       e.Round,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// LockStatusResponse reports a lock's current eligibility.
type LockStatusResponse struct {
	EntryID          string `json:"entry_id"`
	Withdrawable     bool   `json:"withdrawable"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// WithdrawResponse reports a single disbursement.
type WithdrawResponse struct {
	EntryID string          `json:"entry_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// BatchWithdrawResponse reports which locks a batch withdrawal paid.
type BatchWithdrawResponse struct {
	Withdrawn []string        `json:"withdrawn"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

// BatchWithdrawFromResult converts a use case batch result to a response.
func BatchWithdrawFromResult(r *usecase.BatchWithdrawResult) *BatchWithdrawResponse {
	withdrawn := r.Withdrawn
	if withdrawn == nil {
		withdrawn = []string{}
	}
	return &BatchWithdrawResponse{
		Withdrawn: withdrawn,
		TotalPaid: r.TotalPaid,
	}
}

// RoundResponse represents a draw round in API responses.
type RoundResponse struct {
	Number    int64            `json:"number"`
	EntryFee  decimal.Decimal  `json:"entry_fee"`
	Status    string           `json:"status"`
	Winner    *string          `json:"winner,omitempty"`
	Prize     *decimal.Decimal `json:"prize,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	DrawnAt   *time.Time       `json:"drawn_at,omitempty"`
}

// RoundFromDomain converts a domain round to a response.
func RoundFromDomain(r *domain.Round) *RoundResponse {
	resp := &RoundResponse{
		Number:    r.Number,
		EntryFee:  r.EntryFee,
		Status:    string(r.Status),
		Prize:     r.Prize,
		CreatedAt: r.CreatedAt,
		DrawnAt:   r.DrawnAt,
	}
	if r.Winner != nil {
		winner := r.Winner.String()
		resp.Winner = &winner
	}
	return resp
}

// PoolResponse represents the open round and its slots.
type PoolResponse struct {
	Round *RoundResponse   `json:"round"`
	Slots []*EntryResponse `json:"slots"`
}

// StakeResponse represents an accrual record in API responses.
type StakeResponse struct {
	Address     string          `json:"address"`
	Principal   decimal.Decimal `json:"principal"`
	StartedAt   time.Time       `json:"started_at"`
	LastAccrual time.Time       `json:"last_accrual"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StakeFromDomain converts a domain stake to a response.
func StakeFromDomain(s *domain.Stake) *StakeResponse {
	return &StakeResponse{
		Address:     s.Address.String(),
		Principal:   s.Principal,
		StartedAt:   s.StartedAt,
		LastAccrual: s.LastAccrual,
		UpdatedAt:   s.UpdatedAt,
	}
}

// AmountResponse carries a single amount.
type AmountResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

// PolicyReportResponse is one policy's conservation state.
type PolicyReportResponse struct {
	Policy     string          `json:"policy"`
	Balance    decimal.Decimal `json:"balance"`
	Reserve    decimal.Decimal `json:"reserve"`
	Attributed decimal.Decimal `json:"attributed"`
	Consistent bool            `json:"consistent"`
}

// ConsistencyResponse is the ledger-wide conservation report.
type ConsistencyResponse struct {
	Consistent bool                   `json:"consistent"`
	Status     string                 `json:"status"`
	Policies   []PolicyReportResponse `json:"policies"`
}

// ConsistencyFromReports converts use case reports to a response.
func ConsistencyFromReports(reports []usecase.PolicyReport, consistent bool) *ConsistencyResponse {
	status := "consistent"
	if !consistent {
		status = "inconsistent"
	}

	policies := make([]PolicyReportResponse, len(reports))
	for i, r := range reports {
		policies[i] = PolicyReportResponse{
			Policy:     string(r.Policy),
			Balance:    r.Balance,
			Reserve:    r.Reserve,
			Attributed: r.Attributed,
			Consistent: r.Consistent,
		}
	}

	return &ConsistencyResponse{
		Consistent: consistent,
		Status:     status,
		Policies:   policies,
	}
}

// AuditLogResponse represents an audit record in API responses.
type AuditLogResponse struct {
	ID           string    `json:"id"`
	Caller       string    `json:"caller"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLogFromDomain converts a domain audit log to a response.
func AuditLogFromDomain(l *domain.AuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:           l.ID,
		Caller:       l.Caller,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		Status:       l.Status,
		ErrorMessage: l.ErrorMessage,
		CreatedAt:    l.CreatedAt,
	}
}

// AuditLogsFromDomain converts domain audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = AuditLogFromDomain(l)
	}
	return result
}

// TokenResponse carries an issued caller token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
