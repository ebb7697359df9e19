package router_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/amirphl/orochi-idgen/app/handlers"
	"github.com/amirphl/orochi-idgen/app/middleware"
	"github.com/amirphl/orochi-idgen/app/router"
	"github.com/amirphl/orochi-idgen/app/services"
	"github.com/amirphl/orochi-idgen/bootstrap"
	"github.com/amirphl/orochi-idgen/config"
	"github.com/amirphl/orochi-idgen/generator"
	"github.com/amirphl/orochi-idgen/session"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type oneGenerator struct{}

func (oneGenerator) EventTypes() generator.EventTypeSet { return generator.InsertOnly }

func (oneGenerator) Generate(context.Context, session.Session, any, any, generator.EventType) (any, error) {
	return int64(7), nil
}

type stubRegistry struct{ entry *bootstrap.Entry }

func (r stubRegistry) Entries() []*bootstrap.Entry { return []*bootstrap.Entry{r.entry} }

func (r stubRegistry) Lookup(key string) (*bootstrap.Entry, bool) {
	return r.entry, key == r.entry.Key
}

func (stubRegistry) Session(string) session.Session { return nil }

func (stubRegistry) GenerateN(_ context.Context, _ string, _ session.Session, n int) ([]any, error) {
	out := make([]any, n)
	for i := range out {
		out[i] = int64(7)
	}
	return out, nil
}

func (stubRegistry) Structures(context.Context) ([]bootstrap.StructureStatus, error) { return nil, nil }

func setupRouter(t *testing.T) (*fiber.App, services.TokenService) {
	t.Helper()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	tokens, err := services.NewTokenService(time.Hour, "idgen", "operators", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	registry := stubRegistry{entry: &bootstrap.Entry{
		Key:       "Order.id",
		Member:    generator.Member{Entity: "Order", Property: "id", Table: "orders", Column: "id"},
		Strategy:  "table",
		Generator: oneGenerator{},
	}}
	r := router.NewFiberRouter(
		config.ServerConfig{MaxBatch: 5},
		config.MetricsConfig{Enabled: true, Path: "/metrics"},
		handlers.NewGeneratorHandler(registry, 5, log.New(io.Discard, "", 0)),
		handlers.NewHealthHandler("test", nil),
		middleware.NewAuthMiddleware(tokens),
	)
	r.SetupRoutes()
	return r.GetApp(), tokens
}

func request(t *testing.T, app *fiber.App, method, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if json.Valid(body) {
		require.NoError(t, json.Unmarshal(body, &env))
	}
	return resp.StatusCode, env.Error.Code
}

func TestRoutes(t *testing.T) {
	app, tokens := setupRouter(t)

	reader, err := tokens.GenerateToken("ops", []string{services.ScopeRead})
	require.NoError(t, err)
	allocator, err := tokens.GenerateToken("ops", []string{services.ScopeRead, services.ScopeGenerate})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", http.StatusOK, ""},
		{"metrics are public", http.MethodGet, "/metrics", "", http.StatusOK, ""},
		{"listing needs a token", http.MethodGet, "/api/v1/generators", "", http.StatusUnauthorized, "MISSING_AUTHORIZATION_HEADER"},
		{"listing with read scope", http.MethodGet, "/api/v1/generators", reader, http.StatusOK, ""},
		{"structures with read scope", http.MethodGet, "/api/v1/structures", reader, http.StatusOK, ""},
		{"allocation needs next scope", http.MethodPost, "/api/v1/generators/Order.id/next", reader, http.StatusForbidden, "INSUFFICIENT_SCOPE"},
		{"allocation with next scope", http.MethodPost, "/api/v1/generators/Order.id/next", allocator, http.StatusOK, ""},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := request(t, app, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	app, tokens := setupRouter(t)
	token, err := tokens.GenerateToken("ops", []string{services.ScopeRead})
	require.NoError(t, err)
	require.NoError(t, tokens.RevokeToken(token))

	status, _ := request(t, app, http.MethodGet, "/api/v1/generators", token)
	assert.Equal(t, http.StatusUnauthorized, status)
}
