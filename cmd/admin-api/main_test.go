package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/clinic-admin/app"
	"github.com/upb/clinic-admin/config"
	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/routes"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret"

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "info")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "invalid")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("health check returns ok", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("ready without database", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ready", body["status"])
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "disabled", checks["database"])
		assert.Equal(t, "loaded", checks["policy"])
	})
}

func TestAPIEndpoints(t *testing.T) {
	ts := newTestServer(t)

	admin := signedToken(t, "admin-1", "Administrator")
	therapist := signedToken(t, "therapist-1", "Terapeuta")
	noRole := signedToken(t, "nobody", "")

	testCases := []struct {
		name           string
		method         string
		path           string
		token          string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{"grants anonymous", "GET", "/api/v1/permissions/grants", "", "", http.StatusForbidden, "unauthenticated"},
		{"grants without role", "GET", "/api/v1/permissions/grants", noRole, "", http.StatusForbidden, "unauthenticated"},
		{"grants as therapist", "GET", "/api/v1/permissions/grants", therapist, "", http.StatusForbidden, "forbidden"},
		{"grants as administrator", "GET", "/api/v1/permissions/grants", admin, "", http.StatusOK, ""},
		{"role summary as therapist", "GET", "/api/v1/permissions/roles/Coordinator", therapist, "", http.StatusForbidden, "forbidden"},
		{"role summary as administrator", "GET", "/api/v1/permissions/roles/Coordinator", admin, "", http.StatusOK, ""},
		{"unknown role", "GET", "/api/v1/permissions/roles/Janitor", admin, "", http.StatusNotFound, "not_found"},
		{"me anonymous", "GET", "/api/v1/permissions/me", "", "", http.StatusUnauthorized, "unauthorized"},
		{"me with expired or bad token", "GET", "/api/v1/permissions/me", "not-a-jwt", "", http.StatusUnauthorized, "unauthorized"},
		{"me as therapist", "GET", "/api/v1/permissions/me", therapist, "", http.StatusOK, ""},
		{"check as therapist", "POST", "/api/v1/permissions/check", therapist,
			`{"requirements":[{"resource":"diagnoses","action":"update"}]}`, http.StatusOK, ""},
		{"check anonymous", "POST", "/api/v1/permissions/check", "",
			`{"requirements":[{"resource":"diagnoses","action":"update"}]}`, http.StatusUnauthorized, "unauthorized"},
		{"audit trail as therapist", "GET", "/api/v1/audit/decisions", therapist, "", http.StatusForbidden, "forbidden"},
		{"audit trail disabled", "GET", "/api/v1/audit/decisions", admin, "", http.StatusServiceUnavailable, "service_unavailable"},
		{"not found", "GET", "/api/v1/nonexistent", admin, "", http.StatusNotFound, "not_found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, body)
			require.NoError(t, err)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
			if tc.expectedError != "" {
				var errBody map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
				assert.Equal(t, tc.expectedError, errBody["error"])
			}
		})
	}

	t.Run("cookie token", func(t *testing.T) {
		req, err := http.NewRequest("GET", ts.URL+"/api/v1/permissions/me", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: therapist})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Data struct {
				Subject string      `json:"subject"`
				Role    policy.Role `json:"role"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "therapist-1", body.Data.Subject)
		assert.Equal(t, policy.RoleTherapist, body.Data.Role)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/permissions/grants")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`clinic_rbac_decisions_total{guard="any(users:view, users:update)",outcome="unauthenticated"} 1`)
}

func TestCORSMiddleware(t *testing.T) {
	ts := newTestServer(t)

	t.Run("OPTIONS preflight request", func(t *testing.T) {
		req, err := http.NewRequest("OPTIONS", ts.URL+"/api/v1/permissions/check", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req, err := http.NewRequest("OPTIONS", ts.URL+"/api/v1/permissions/check", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", "POST")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

// Test helpers

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	deps, err := app.NewDependencies(ctx, testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(ctx) })

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(ts.Close)
	return ts
}

func signedToken(t *testing.T, subject, role string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": "clinic-login",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			JWTSecret: testSecret,
			Issuer:    "clinic-login",
			RoleClaim: "role",
			Leeway:    30 * time.Second,
		},
		Audit: config.AuditConfig{
			Enabled:         true,
			BufferSize:      10,
			Workers:         1,
			ShutdownTimeout: time.Second,
		},
		Policy: config.PolicyConfig{StrictRequirements: true},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       "error",
			LogFormat:      "json",
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
		},
	}
}
