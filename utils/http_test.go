package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/clinic-admin/internal/policy"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusNoContent, nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, map[string]string{"result": "success"}))
	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter) error
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{
			name:        "bad request",
			write:       func(w http.ResponseWriter) error { return WriteBadRequest(w, "Invalid input", nil) },
			wantStatus:  http.StatusBadRequest,
			wantError:   "bad_request",
			wantMessage: "Invalid input",
		},
		{
			name:        "unauthorized default message",
			write:       func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			wantStatus:  http.StatusUnauthorized,
			wantError:   "unauthorized",
			wantMessage: "Authentication required",
		},
		{
			name:        "forbidden custom message",
			write:       func(w http.ResponseWriter) error { return WriteForbidden(w, "No access") },
			wantStatus:  http.StatusForbidden,
			wantError:   "forbidden",
			wantMessage: "No access",
		},
		{
			name:        "not found default message",
			write:       func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantStatus:  http.StatusNotFound,
			wantError:   "not_found",
			wantMessage: "Resource not found",
		},
		{
			name:        "internal error default message",
			write:       func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantStatus:  http.StatusInternalServerError,
			wantError:   "internal_error",
			wantMessage: "Internal server error",
		},
		{
			name:        "service unavailable",
			write:       func(w http.ResponseWriter) error { return WriteServiceUnavailable(w, "database down") },
			wantStatus:  http.StatusServiceUnavailable,
			wantError:   "service_unavailable",
			wantMessage: "database down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, tt.wantMessage, response.Message)
		})
	}
}

func TestWriteValidationError(t *testing.T) {
	t.Run("validation error lists fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := &ValidationError{Message: "Validation failed", Fields: map[string]string{"mode": "mode is required"}}

		require.NoError(t, WriteValidationError(w, err))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "mode is required", response.Details["mode"])
	})

	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteValidationError(w, assert.AnError))

		response := decodeError(t, w)
		assert.Equal(t, assert.AnError.Error(), response.Message)
		assert.Nil(t, response.Details)
	})
}

func TestWriteAuthorizationError(t *testing.T) {
	guard := policy.Authorize(policy.ResourcePatients, policy.ActionDelete)

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteAuthorizationError(w, guard.Check(nil)))

		assert.Equal(t, http.StatusForbidden, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "unauthenticated", response.Error)
		assert.Equal(t, "user not authenticated or has no assigned role", response.Message)
	})

	t.Run("forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteAuthorizationError(w, guard.Check(&policy.Identity{Role: policy.RoleTherapist})))

		assert.Equal(t, http.StatusForbidden, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, "forbidden", response.Error)
		assert.Equal(t, "role 'Therapist' is not allowed to delete patients", response.Message)
	})

	t.Run("foreign error", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteAuthorizationError(w, assert.AnError))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", decodeError(t, w).Error)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Mode string `json:"mode"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{name: "valid", body: `{"mode":"any"}`, want: "any"},
		{name: "empty", body: ``, wantErr: "request body is empty"},
		{name: "malformed", body: `{"mode":`, wantErr: "invalid JSON body"},
		{name: "unknown field", body: `{"mode":"any","extra":1}`, wantErr: "invalid JSON body"},
		{name: "trailing object", body: `{"mode":"any"}{"mode":"all"}`, wantErr: "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var p payload
			err := DecodeJSON(r, &p)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Mode)
		})
	}
}
