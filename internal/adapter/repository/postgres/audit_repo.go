package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

const auditColumns = `id, caller, action, resource_type, resource_id, after_state, status, error_message, created_at`

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Create writes an audit log outside any transaction. Best-effort records
// written after commit use this path.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.create(ctx, r.pool, log)
}

// CreateTx writes an audit log inside the mutating transaction.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return r.create(ctx, txQuerier(tx), log)
}

func (r *AuditRepository) create(ctx context.Context, q querier, log *domain.AuditLog) error {
	var afterState []byte
	if log.AfterState != nil {
		data, err := json.Marshal(log.AfterState)
		if err != nil {
			return err
		}
		afterState = data
	}

	_, err := q.Exec(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.ID,
		log.Caller,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		afterState,
		log.Status,
		log.ErrorMessage,
		timeToPgTimestamptz(log.CreatedAt),
	)

	return err
}

// List queries audit logs by filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var (
		conditions []string
		args       []any
	)

	addCondition := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
	}

	addCondition("caller", filter.Caller)
	addCondition("action", filter.Action)
	addCondition("resource_type", filter.ResourceType)
	addCondition("resource_id", filter.ResourceID)

	if filter.StartDate != nil {
		args = append(args, timeToPgTimestamptz(*filter.StartDate))
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, timeToPgTimestamptz(*filter.EndDate))
		conditions = append(conditions, "created_at <= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func scanAuditLog(row pgx.Row) (*domain.AuditLog, error) {
	var (
		log        domain.AuditLog
		afterState []byte
		createdAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&log.ID,
		&log.Caller,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&afterState,
		&log.Status,
		&log.ErrorMessage,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if afterState != nil {
		_ = json.Unmarshal(afterState, &log.AfterState)
	}
	log.CreatedAt = createdAt.Time

	return &log, nil
}
