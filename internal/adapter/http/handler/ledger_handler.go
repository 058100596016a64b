package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/iho/custody/internal/adapter/http/dto"
	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// LedgerHandler handles conservation checks and audit queries.
type LedgerHandler struct {
	ledgerUC  LedgerService
	auditRepo usecase.AuditRepository
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, auditRepo usecase.AuditRepository) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, auditRepo: auditRepo}
}

// Consistency audits every policy against the conservation invariant.
// An inconsistent ledger still returns the per-policy reports, with a
// conflict status so monitors can alert on it.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) {
			writeJSON(w, http.StatusConflict, dto.ConsistencyFromReports(reports, false))
			return
		}
		writeError(w, http.StatusInternalServerError, "consistency check failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromReports(reports, true))
}

// AuditLogs lists audit records with optional filters.
func (h *LedgerHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{
		Caller:       r.URL.Query().Get("caller"),
		Action:       r.URL.Query().Get("action"),
		ResourceType: r.URL.Query().Get("resource_type"),
		ResourceID:   r.URL.Query().Get("resource_id"),
		Limit:        parseIntQuery(r, "limit", 100),
		Offset:       parseIntQuery(r, "offset", 0),
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date", err.Error())
			return
		}
		filter.StartDate = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date", err.Error())
			return
		}
		filter.EndDate = &t
	}

	logs, err := h.auditRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit logs", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
