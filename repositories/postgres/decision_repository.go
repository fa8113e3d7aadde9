package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/clinic-admin/models"
	"github.com/upb/clinic-admin/repositories"
	"go.uber.org/zap"
)

const decisionColumns = `id, request_id, subject, role, guard, requirements, outcome,
		       reason, method, path, ip_address, timestamp`

// DecisionRepository implements the repositories.DecisionRepository interface
type DecisionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *DB, logger *zap.Logger) repositories.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a decision
func (r *DecisionRepository) Insert(ctx context.Context, d *models.AuthorizationDecision) error {
	query := `
		INSERT INTO authorization_decisions (
			id, request_id, subject, role, guard, requirements, outcome,
			reason, method, path, ip_address, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	requirements := []byte(d.Requirements)
	if len(requirements) == 0 {
		requirements = []byte("[]")
	}

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.RequestID,
		d.Subject,
		d.Role,
		d.Guard,
		requirements,
		d.Outcome,
		d.Reason,
		d.Method,
		d.Path,
		d.IPAddress,
		d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert authorization decision: %w", err)
	}

	r.logger.Debug("authorization decision inserted",
		zap.String("id", d.ID.String()),
		zap.String("outcome", string(d.Outcome)))
	return nil
}

// List returns decisions matching filter with pagination, newest first
func (r *DecisionRepository) List(ctx context.Context, filter models.DecisionFilter, limit, offset int) ([]*models.AuthorizationDecision, error) {
	where, args := buildDecisionFilter(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM authorization_decisions%s
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d
	`, decisionColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authorization decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.AuthorizationDecision
	for rows.Next() {
		d := &models.AuthorizationDecision{}
		var requirements []byte
		if err := rows.Scan(
			&d.ID,
			&d.RequestID,
			&d.Subject,
			&d.Role,
			&d.Guard,
			&requirements,
			&d.Outcome,
			&d.Reason,
			&d.Method,
			&d.Path,
			&d.IPAddress,
			&d.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan authorization decision: %w", err)
		}
		d.Requirements = requirements
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authorization decisions: %w", err)
	}

	return decisions, nil
}

// Count returns the number of decisions matching filter
func (r *DecisionRepository) Count(ctx context.Context, filter models.DecisionFilter) (int, error) {
	where, args := buildDecisionFilter(filter)
	query := "SELECT COUNT(*) FROM authorization_decisions" + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count authorization decisions: %w", err)
	}
	return count, nil
}

// buildDecisionFilter returns a WHERE clause (with leading space) and its
// positional arguments.
func buildDecisionFilter(filter models.DecisionFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Outcome != "" {
		args = append(args, string(filter.Outcome))
		conds = append(conds, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
