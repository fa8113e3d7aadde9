package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/middleware"
	"github.com/upb/clinic-admin/utils"
	"go.uber.org/zap"
)

// Check modes for CheckRequest
const (
	CheckModeAll = "all"
	CheckModeAny = "any"
)

// CheckRequest asks whether the caller holds a set of permissions
type CheckRequest struct {
	Requirements []policy.Requirement `json:"requirements" validate:"required,min=1,max=50,dive"`
	Mode         string               `json:"mode,omitempty" validate:"omitempty,oneof=all any"`
}

// RequirementResult is the decision for one requested permission
type RequirementResult struct {
	Resource policy.Resource `json:"resource"`
	Action   policy.Action   `json:"action"`
	Allowed  bool            `json:"allowed"`
}

// CheckResponse answers a CheckRequest
type CheckResponse struct {
	Allowed bool                `json:"allowed"`
	Mode    string              `json:"mode"`
	Role    policy.Role         `json:"role"`
	Results []RequirementResult `json:"results"`
}

// PermissionsResponse is the capability summary of one role
type PermissionsResponse struct {
	Subject     string                       `json:"subject,omitempty"`
	Role        policy.Role                  `json:"role"`
	Permissions []policy.ResourcePermissions `json:"permissions"`
}

// GrantsResponse describes the full grant table
type GrantsResponse struct {
	Roles   []policy.Role          `json:"roles"`
	Actions []policy.Action        `json:"actions"`
	Grants  []policy.ResourceGrant `json:"grants"`
}

// PermissionHandler serves read-only views of the grant table
type PermissionHandler struct {
	table  *policy.Table
	logger *zap.Logger
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(table *policy.Table, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{
		table:  table,
		logger: logger,
	}
}

// HandleMe handles GET /api/v1/permissions/me
func (h *PermissionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentityFromContext(r.Context())
	if id == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	_ = utils.WriteOK(w, PermissionsResponse{
		Subject:     id.Subject,
		Role:        id.Role,
		Permissions: h.table.RoleSummary(id.Role),
	})
}

// HandleRole handles GET /api/v1/permissions/roles/{role}
// Role names are matched exactly.
func (h *PermissionHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	role := policy.Role(chi.URLParam(r, "role"))

	known := false
	for _, candidate := range h.table.Roles() {
		if candidate == role {
			known = true
			break
		}
	}
	if !known {
		_ = utils.WriteNotFound(w, "unknown role '"+string(role)+"'")
		return
	}

	_ = utils.WriteOK(w, PermissionsResponse{
		Role:        role,
		Permissions: h.table.RoleSummary(role),
	})
}

// HandleGrants handles GET /api/v1/permissions/grants
func (h *PermissionHandler) HandleGrants(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, GrantsResponse{
		Roles:   h.table.Roles(),
		Actions: policy.Actions,
		Grants:  h.table.Grants(),
	})
}

// HandleCheck handles POST /api/v1/permissions/check
// Unknown resources or actions are answered as not allowed.
func (h *PermissionHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id := middleware.GetIdentityFromContext(ctx)
	if id == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req CheckRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if req.Mode == "" {
		req.Mode = CheckModeAll
	}

	results := make([]RequirementResult, len(req.Requirements))
	for i, rq := range req.Requirements {
		results[i] = RequirementResult{
			Resource: rq.Resource,
			Action:   rq.Action,
			Allowed:  h.table.HasPermission(rq.Resource, rq.Action, id.Role),
		}
	}

	var allowed bool
	if req.Mode == CheckModeAny {
		allowed = h.table.AuthorizeAny(req.Requirements...).Allows(id)
	} else {
		allowed = true
		for _, res := range results {
			allowed = allowed && res.Allowed
		}
	}

	h.logger.Debug("permission check",
		zap.String("request_id", requestID),
		zap.String("subject", id.Subject),
		zap.String("role", string(id.Role)),
		zap.String("mode", req.Mode),
		zap.Bool("allowed", allowed))

	_ = utils.WriteOK(w, CheckResponse{
		Allowed: allowed,
		Mode:    req.Mode,
		Role:    id.Role,
		Results: results,
	})
}
