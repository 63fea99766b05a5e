package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestScopeMiddlewareSetsScope(t *testing.T) {
	var got shared.Scope
	var ok bool
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = shared.ScopeFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Company-ID", "12")
	req.Header.Set("X-Actor-ID", "34")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	require.EqualValues(t, 12, got.CompanyID)
	require.EqualValues(t, 34, got.ActorID)
}

func TestScopeMiddlewarePassesUnscoped(t *testing.T) {
	var ok bool
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = shared.ScopeFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, ok, "missing header leaves the request unscoped")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Company-ID", "-3")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, ok, "non-positive company id leaves the request unscoped")
}
