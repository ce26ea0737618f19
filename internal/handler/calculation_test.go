package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/calc-tracker/internal/auth"
	"github.com/sakif/calc-tracker/internal/handler"
	"github.com/sakif/calc-tracker/internal/model"
	"github.com/sakif/calc-tracker/internal/repository/sqlite"
	"github.com/sakif/calc-tracker/internal/service"
)

// testEnv wires real components over an in-memory database: sqlite repo →
// services → handlers, with the RequireAuth middleware in front. Handler
// tests exercise the same chain a request travels in production.
type testEnv struct {
	db      *sqlite.DB
	tokens  *auth.TokenService
	handler *handler.CalculationHandler
	stats   *handler.StatsHandler
	user    *model.User
	access  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0, 0, db)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	user := &model.User{Username: "alice", Email: "alice@example.com", Active: true}
	require.NoError(t, db.CreateUser(context.Background(), user))

	access, err := tokens.Generate(user.ID, auth.TokenAccess, tokens.AccessTTL())
	require.NoError(t, err)

	return &testEnv{
		db:      db,
		tokens:  tokens,
		handler: handler.NewCalculationHandler(service.NewCalculationService(db, logger), logger),
		stats:   handler.NewStatsHandler(service.NewStatsService(db, logger), logger),
		user:    user,
		access:  access,
	}
}

// do runs a request through RequireAuth into the given handler func.
func (e *testEnv) do(method, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.access)
	rr := httptest.NewRecorder()
	auth.RequireAuth(e.tokens)(h).ServeHTTP(rr, req)
	return rr
}

func TestCalculationHandler_Create(t *testing.T) {
	env := newTestEnv(t)

	t.Run("valid calculation", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/calculations",
			`{"type":"add","operands":[1,2,3]}`, env.handler.HandleCreate)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var calc model.Calculation
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&calc))
		assert.Equal(t, "add", calc.Type)
		assert.Equal(t, 6.0, calc.Result)
		assert.Equal(t, env.user.ID, calc.UserID)
		assert.NotEmpty(t, calc.ID)
	})

	t.Run("unknown operation", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/calculations",
			`{"type":"sqrt","operands":[4]}`, env.handler.HandleCreate)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var res handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "validation_error", res.Error)
	})

	t.Run("division by zero", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/calculations",
			`{"type":"divide","operands":[5,0]}`, env.handler.HandleCreate)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var res handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Contains(t, res.Message, "division by zero")
	})

	t.Run("invalid json", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/calculations",
			`{"type":`, env.handler.HandleCreate)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/calculations",
			bytes.NewBufferString(`{"type":"add","operands":[1]}`))
		rr := httptest.NewRecorder()
		auth.RequireAuth(env.tokens)(http.HandlerFunc(env.handler.HandleCreate)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestCalculationHandler_UpdateRecomputes(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/calculations",
		`{"type":"subtract","operands":[10,3]}`, env.handler.HandleCreate)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created model.Calculation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	require.Equal(t, 7.0, created.Result)

	req := httptest.NewRequest(http.MethodPut, "/api/calculations/"+created.ID,
		bytes.NewBufferString(`{"operands":[10,3,2]}`))
	req.SetPathValue("id", created.ID)
	req.Header.Set("Authorization", "Bearer "+env.access)
	rr = httptest.NewRecorder()
	auth.RequireAuth(env.tokens)(http.HandlerFunc(env.handler.HandleUpdate)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var updated model.Calculation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, 5.0, updated.Result)
	assert.Equal(t, "subtract", updated.Type, "type must survive an edit")
}

func TestCalculationHandler_GetAndDelete(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/calculations",
		`{"type":"multiply","operands":[6,7]}`, env.handler.HandleCreate)
	var created model.Calculation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	get := httptest.NewRequest(http.MethodGet, "/api/calculations/"+created.ID, nil)
	get.SetPathValue("id", created.ID)
	get.Header.Set("Authorization", "Bearer "+env.access)
	rr = httptest.NewRecorder()
	auth.RequireAuth(env.tokens)(http.HandlerFunc(env.handler.HandleGetByID)).ServeHTTP(rr, get)
	assert.Equal(t, http.StatusOK, rr.Code)

	del := httptest.NewRequest(http.MethodDelete, "/api/calculations/"+created.ID, nil)
	del.SetPathValue("id", created.ID)
	del.Header.Set("Authorization", "Bearer "+env.access)
	rr = httptest.NewRecorder()
	auth.RequireAuth(env.tokens)(http.HandlerFunc(env.handler.HandleDelete)).ServeHTTP(rr, del)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// Gone now.
	get2 := httptest.NewRequest(http.MethodGet, "/api/calculations/"+created.ID, nil)
	get2.SetPathValue("id", created.ID)
	get2.Header.Set("Authorization", "Bearer "+env.access)
	rr = httptest.NewRecorder()
	auth.RequireAuth(env.tokens)(http.HandlerFunc(env.handler.HandleGetByID)).ServeHTTP(rr, get2)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCalculationHandler_CrossUserIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/calculations",
		`{"type":"add","operands":[1,2]}`, env.handler.HandleCreate)
	var created model.Calculation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	// A second user with their own token.
	other := &model.User{Username: "bob", Email: "bob@example.com", Active: true}
	require.NoError(t, env.db.CreateUser(context.Background(), other))
	otherToken, err := env.tokens.Generate(other.ID, auth.TokenAccess, env.tokens.AccessTTL())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/calculations/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	rr = httptest.NewRecorder()
	auth.RequireAuth(env.tokens)(http.HandlerFunc(env.handler.HandleGetByID)).ServeHTTP(rr, req)

	// 404, not 403 — existence must not leak across accounts.
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t)

	t.Run("empty history", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/api/stats", "", env.stats.HandleStats)
		assert.Equal(t, http.StatusOK, rr.Code)

		var summary service.Summary
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&summary))
		assert.Equal(t, 0, summary.Total)
		assert.Nil(t, summary.LastCalculationAt)
	})

	t.Run("aggregates own records", func(t *testing.T) {
		env.do(http.MethodPost, "/api/calculations", `{"type":"add","operands":[1,2]}`, env.handler.HandleCreate)
		env.do(http.MethodPost, "/api/calculations", `{"type":"add","operands":[3,4]}`, env.handler.HandleCreate)
		env.do(http.MethodPost, "/api/calculations", `{"type":"multiply","operands":[5,6]}`, env.handler.HandleCreate)

		rr := env.do(http.MethodGet, "/api/stats", "", env.stats.HandleStats)
		assert.Equal(t, http.StatusOK, rr.Code)

		var summary service.Summary
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&summary))
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, 2.0, summary.AverageOperands)
		assert.Equal(t, map[string]int{"add": 2, "multiply": 1}, summary.Breakdown)
		assert.Equal(t, "add", summary.MostUsedOperation)
		assert.NotNil(t, summary.LastCalculationAt)
	})
}
