package repositories

import (
	"context"

	"github.com/upb/clinic-admin/models"
)

// DecisionRepository stores authorization decisions
type DecisionRepository interface {
	// Insert stores one decision
	Insert(ctx context.Context, decision *models.AuthorizationDecision) error

	// List returns decisions matching filter, newest first
	List(ctx context.Context, filter models.DecisionFilter, limit, offset int) ([]*models.AuthorizationDecision, error)

	// Count returns the number of decisions matching filter
	Count(ctx context.Context, filter models.DecisionFilter) (int, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Decisions DecisionRepository
}
