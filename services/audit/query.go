package audit

import (
	"context"
	"fmt"

	"github.com/upb/clinic-admin/models"
	"github.com/upb/clinic-admin/repositories"
)

// Listing bounds
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// DecisionPage is one page of recorded decisions
type DecisionPage struct {
	Decisions []*models.AuthorizationDecision `json:"decisions"`
	Total     int                             `json:"total"`
	Limit     int                             `json:"limit"`
	Offset    int                             `json:"offset"`
}

// Query reads the decision trail
type Query struct {
	repo repositories.DecisionRepository
}

// NewQuery creates a Query over repo
func NewQuery(repo repositories.DecisionRepository) *Query {
	return &Query{repo: repo}
}

// List returns one page of decisions matching filter. limit is clamped to
// MaxPageSize and defaults to DefaultPageSize.
func (q *Query) List(ctx context.Context, filter models.DecisionFilter, limit, offset int) (*DecisionPage, error) {
	if filter.Outcome != "" && !filter.Outcome.IsValid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", ErrInvalidFilter, filter.Outcome)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	decisions, err := q.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := q.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if decisions == nil {
		decisions = []*models.AuthorizationDecision{}
	}

	return &DecisionPage{
		Decisions: decisions,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}
