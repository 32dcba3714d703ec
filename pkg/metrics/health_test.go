package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetHealth swaps in a fresh checker for the duration of a test
func resetHealth(t *testing.T) {
	t.Helper()
	prev := healthChecker
	healthChecker = newHealthChecker()
	t.Cleanup(func() { healthChecker = prev })
}

func TestGetHealth(t *testing.T) {
	resetHealth(t)
	SetVersion("v0.3.0")

	UpdateComponent(ComponentStorage, true, "")
	UpdateComponent(ComponentDrain, true, "")
	health := GetHealth()
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "v0.3.0", health.Version)
	assert.Len(t, health.Components, 2)

	UpdateComponent(ComponentDrain, false, "list nodes: timeout")
	health = GetHealth()
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: list nodes: timeout", health.Components[ComponentDrain])
}

func TestGetReadiness(t *testing.T) {
	resetHealth(t)

	readiness := GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.Equal(t, "not registered", readiness.Components[ComponentAPI])

	UpdateComponent(ComponentStorage, true, "")
	UpdateComponent(ComponentAPI, false, "binding")
	readiness = GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.Equal(t, "waiting for api", readiness.Message)

	UpdateComponent(ComponentAPI, true, "")
	assert.Equal(t, "ready", GetReadiness().Status)
}

func TestHealthHandlers(t *testing.T) {
	resetHealth(t)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		setup   func()
		code    int
		status  string
	}{
		{
			name:    "health ok",
			handler: HealthHandler(),
			setup:   func() { UpdateComponent(ComponentStorage, true, "") },
			code:    http.StatusOK,
			status:  "healthy",
		},
		{
			name:    "ready missing api",
			handler: ReadyHandler(),
			setup:   func() {},
			code:    http.StatusServiceUnavailable,
			status:  "not_ready",
		},
		{
			name:    "ready",
			handler: ReadyHandler(),
			setup:   func() { UpdateComponent(ComponentAPI, true, "") },
			code:    http.StatusOK,
			status:  "ready",
		},
		{
			name:    "health degraded",
			handler: HealthHandler(),
			setup:   func() { UpdateComponent(ComponentStorage, false, "closed") },
			code:    http.StatusServiceUnavailable,
			status:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
		})
	}
}
