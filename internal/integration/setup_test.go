// Package integration runs the HTTP API, the job handler and the MCP tool
// end to end against fake vendor servers and a SQLite meal log.
package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mealsnap/mealsnap/internal/api"
	"github.com/mealsnap/mealsnap/internal/config"
	"github.com/mealsnap/mealsnap/internal/jobs"
	"github.com/mealsnap/mealsnap/internal/mcp"
	"github.com/mealsnap/mealsnap/internal/meallog"
	"github.com/mealsnap/mealsnap/internal/middleware"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/services/provider"
)

const (
	testSecret = "integration-secret"
	testIssuer = "https://auth.mealsnap.test"

	chickenSalad = `{\"name\":\"Chicken salad\",\"calories\":420,\"protein\":35,\"carbs\":12,\"fat\":24}`
)

// ============================================================================
// Fake vendors
// ============================================================================

type vendor struct {
	server *httptest.Server
	calls  atomic.Int32
}

func newVendor(t *testing.T, status int, body string) *vendor {
	t.Helper()
	v := &vendor{}
	v.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(v.server.Close)
	return v
}

func geminiDown(t *testing.T) *vendor {
	return newVendor(t, http.StatusServiceUnavailable, `{"error":{"message":"overloaded"}}`)
}

func groqUp(t *testing.T) *vendor {
	return newVendor(t, http.StatusOK, `{"choices":[{"message":{"content":"`+chickenSalad+`"}}]}`)
}

func groqDown(t *testing.T) *vendor {
	return newVendor(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
}

// ============================================================================
// Service wiring
// ============================================================================

type stack struct {
	cfg      *config.Config
	registry *provider.Registry
	meals    meallog.Store
	jobs     *jobs.MemoryStore
	set      *analyzer.Set
	router   chi.Router
}

// newStack wires gemini (default) and groq against the given fake servers.
func newStack(t *testing.T, gemini, groq *vendor) *stack {
	t.Helper()

	cfg := &config.Config{
		Env:       "production",
		JWTSecret: testSecret,
		JWTIssuer: testIssuer,
		Providers: config.ProvidersConfig{
			DefaultProvider: "gemini",
			Entries: []config.ProviderEntry{
				{Name: "gemini", Config: config.ProviderConfig{
					Type:     "gemini",
					APIKey:   "gemini-key",
					Endpoint: gemini.server.URL,
					Timeout:  5 * time.Second,
				}},
				{Name: "groq", Config: config.ProviderConfig{
					Type:     "openai_compatible",
					APIKey:   "groq-key",
					Endpoint: groq.server.URL,
					Models:   []string{"llama-3.3-70b-versatile"},
					Timeout:  5 * time.Second,
				}},
			},
		},
	}

	registry := provider.CreateAllProviders(&cfg.Providers)
	require.Equal(t, 2, registry.Len())

	meals, err := meallog.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "meals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { meals.Close() })

	s := &stack{
		cfg:      cfg,
		registry: registry,
		meals:    meals,
		jobs:     jobs.NewMemoryStore(),
		set:      analyzer.NewSet(analysis.NewService(registry)),
		router:   chi.NewRouter(),
	}

	srv := api.NewServer(s.set, registry, meals, s.jobs, nil, 30*time.Second)
	srv.Routes(s.router, middleware.AuthMiddleware(cfg), mcp.NewHandler(s.set, meals), nil)
	return s
}

func createTestToken(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString([]byte(testSecret))
	return tokenString
}
