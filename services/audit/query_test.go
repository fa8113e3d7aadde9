package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/models"
)

func TestQuery_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns page with total", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		filter := models.DecisionFilter{Outcome: models.OutcomeForbidden, Role: "Therapist"}
		rows := []*models.AuthorizationDecision{testDecision(policy.RoleTherapist)}
		repo.On("List", ctx, filter, 10, 20).Return(rows, nil)
		repo.On("Count", ctx, filter).Return(31, nil)

		page, err := NewQuery(repo).List(ctx, filter, 10, 20)
		require.NoError(t, err)

		assert.Equal(t, rows, page.Decisions)
		assert.Equal(t, 31, page.Total)
		assert.Equal(t, 10, page.Limit)
		assert.Equal(t, 20, page.Offset)
		repo.AssertExpectations(t)
	})

	t.Run("limit defaults and clamps", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		repo.On("List", ctx, models.DecisionFilter{}, DefaultPageSize, 0).Return(nil, nil)
		repo.On("List", ctx, models.DecisionFilter{}, MaxPageSize, 0).Return(nil, nil)
		repo.On("Count", ctx, models.DecisionFilter{}).Return(0, nil)

		q := NewQuery(repo)

		page, err := q.List(ctx, models.DecisionFilter{}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultPageSize, page.Limit)
		assert.NotNil(t, page.Decisions)
		assert.Empty(t, page.Decisions)

		page, err = q.List(ctx, models.DecisionFilter{}, 10000, 0)
		require.NoError(t, err)
		assert.Equal(t, MaxPageSize, page.Limit)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		repo := new(MockDecisionRepository)

		_, err := NewQuery(repo).List(ctx, models.DecisionFilter{Outcome: "maybe"}, 10, 0)
		assert.ErrorIs(t, err, ErrInvalidFilter)
		repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := NewQuery(new(MockDecisionRepository)).List(ctx, models.DecisionFilter{}, 10, -1)
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockDecisionRepository)
		repo.On("List", ctx, models.DecisionFilter{}, 10, 0).Return(nil, errors.New("db down"))

		_, err := NewQuery(repo).List(ctx, models.DecisionFilter{}, 10, 0)
		assert.Error(t, err)
	})
}
