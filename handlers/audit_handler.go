package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/clinic-admin/middleware"
	"github.com/upb/clinic-admin/models"
	"github.com/upb/clinic-admin/services/audit"
	"github.com/upb/clinic-admin/utils"
	"go.uber.org/zap"
)

// DecisionLister reads the authorization decision trail
type DecisionLister interface {
	List(ctx context.Context, filter models.DecisionFilter, limit, offset int) (*audit.DecisionPage, error)
}

// AuditHandler serves the authorization decision trail
type AuditHandler struct {
	decisions DecisionLister
	logger    *zap.Logger
}

// NewAuditHandler creates a new AuditHandler. A nil lister means the trail
// is disabled.
func NewAuditHandler(decisions DecisionLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		decisions: decisions,
		logger:    logger,
	}
}

// HandleListDecisions handles GET /api/v1/audit/decisions
// Query parameters: limit, offset, outcome, role.
func (h *AuditHandler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if h.decisions == nil {
		_ = utils.WriteServiceUnavailable(w, "authorization audit trail is disabled")
		return
	}

	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "limit must be an integer", nil)
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "offset must be an integer", nil)
		return
	}

	filter := models.DecisionFilter{
		Outcome: models.DecisionOutcome(q.Get("outcome")),
		Role:    q.Get("role"),
	}

	page, err := h.decisions.List(ctx, filter, limit, offset)
	if err != nil {
		h.logger.Warn("failed to list decisions",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, page)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
