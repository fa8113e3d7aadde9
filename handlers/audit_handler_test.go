package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/models"
	"github.com/upb/clinic-admin/services/audit"
	"github.com/upb/clinic-admin/utils"
	"go.uber.org/zap"
)

type MockDecisionLister struct {
	mock.Mock
}

func (m *MockDecisionLister) List(ctx context.Context, filter models.DecisionFilter, limit, offset int) (*audit.DecisionPage, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.DecisionPage), args.Error(1)
}

func TestAuditHandler_HandleListDecisions(t *testing.T) {
	logger := zap.NewNop()

	t.Run("lists decisions with filters", func(t *testing.T) {
		lister := new(MockDecisionLister)
		handler := NewAuditHandler(lister, logger)

		decision := models.NewAuthorizationDecision(policy.Authorize(policy.ResourceUsers, policy.ActionDelete), nil).
			WithIdentity(&policy.Identity{Subject: "user-1", Role: policy.RoleAdministrator})
		page := &audit.DecisionPage{
			Decisions: []*models.AuthorizationDecision{decision},
			Total:     1,
			Limit:     10,
			Offset:    5,
		}
		filter := models.DecisionFilter{Outcome: models.OutcomeAllowed, Role: "Administrator"}
		lister.On("List", mock.Anything, filter, 10, 5).Return(page, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/decisions?limit=10&offset=5&outcome=allowed&role=Administrator", nil)
		w := httptest.NewRecorder()

		handler.HandleListDecisions(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got audit.DecisionPage
		decodeData(t, w, &got)
		assert.Equal(t, 1, got.Total)
		assert.Equal(t, 10, got.Limit)
		require.Len(t, got.Decisions, 1)
		assert.Equal(t, "users:delete", got.Decisions[0].Guard)
		assert.Equal(t, models.OutcomeAllowed, got.Decisions[0].Outcome)
		lister.AssertExpectations(t)
	})

	t.Run("defaults are left to the query", func(t *testing.T) {
		lister := new(MockDecisionLister)
		handler := NewAuditHandler(lister, logger)

		lister.On("List", mock.Anything, models.DecisionFilter{}, 0, 0).
			Return(&audit.DecisionPage{Decisions: []*models.AuthorizationDecision{}, Limit: audit.DefaultPageSize}, nil)

		w := httptest.NewRecorder()
		handler.HandleListDecisions(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/decisions", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		lister.AssertExpectations(t)
	})

	t.Run("bad paging parameters", func(t *testing.T) {
		lister := new(MockDecisionLister)
		handler := NewAuditHandler(lister, logger)

		for _, query := range []string{"limit=ten", "offset=1.5"} {
			w := httptest.NewRecorder()
			handler.HandleListDecisions(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/decisions?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
		}
		lister.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid filter", func(t *testing.T) {
		lister := new(MockDecisionLister)
		handler := NewAuditHandler(lister, logger)

		lister.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: unknown outcome %q", audit.ErrInvalidFilter, "maybe"))

		w := httptest.NewRecorder()
		handler.HandleListDecisions(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/decisions?outcome=maybe", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("repository failure", func(t *testing.T) {
		lister := new(MockDecisionLister)
		handler := NewAuditHandler(lister, logger)

		lister.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset"))

		w := httptest.NewRecorder()
		handler.HandleListDecisions(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/decisions", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})

	t.Run("trail disabled", func(t *testing.T) {
		handler := NewAuditHandler(nil, logger)

		w := httptest.NewRecorder()
		handler.HandleListDecisions(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/decisions", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "service_unavailable", resp.Error)
	})
}
