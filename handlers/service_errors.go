package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/services/audit"
	"github.com/upb/clinic-admin/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var writeErr error
	switch {
	case errors.Is(err, audit.ErrInvalidFilter), errors.Is(err, policy.ErrUnknownRequirement):
		writeErr = utils.WriteBadRequest(w, err.Error(), nil)

	case errors.Is(err, policy.ErrUnauthenticated), errors.Is(err, policy.ErrForbidden):
		writeErr = utils.WriteAuthorizationError(w, err)

	default:
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if writeErr := utils.WriteValidationError(w, err); writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
