// Package apitest assembles the authorization pipeline over an in-memory store for
// handler tests.
package apitest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus-erp/internal/auth"
	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	_ "github.com/odyssey-erp/campus-erp/testing"
)

const secret = "apitest-secret-0123456789abcdef"

// Env is a router, store and token issuer sharing one authorization pipeline.
type Env struct {
	Store  *docstore.Memory
	Tokens *auth.JWTService
	RBAC   rbac.Middleware
	Router chi.Router
}

// New builds an Env with an empty store.
func New(t *testing.T) *Env {
	t.Helper()
	store := docstore.NewMemory()
	tokens := auth.NewJWTService(auth.JWTConfig{Secret: secret, Issuer: "campus-erp", TTL: time.Hour})
	return &Env{
		Store:  store,
		Tokens: tokens,
		RBAC: rbac.Middleware{
			Resolver: auth.NewResolver(tokens, store),
			Checker:  rbac.NewChecker(store),
		},
		Router: chi.NewRouter(),
	}
}

// User stores an active account with the given role and returns a bearer token for it.
func (e *Env) User(t *testing.T, id string, role rbac.Role) string {
	t.Helper()
	require.NoError(t, e.Store.Set(context.Background(), shared.CollectionUsers, id, docstore.Document{
		"email":    id + "@campus.test",
		"name":     "User " + id,
		"role":     role.String(),
		"isActive": true,
	}))
	token, _, err := e.Tokens.Issue(id, role)
	require.NoError(t, err)
	return token
}

// Put stores a raw document.
func (e *Env) Put(t *testing.T, collection, id string, doc docstore.Document) {
	t.Helper()
	require.NoError(t, e.Store.Set(context.Background(), collection, id, doc))
}

// Doc loads a raw document, failing the test when it is missing.
func (e *Env) Doc(t *testing.T, collection, id string) docstore.Document {
	t.Helper()
	doc, err := e.Store.Get(context.Background(), collection, id)
	require.NoError(t, err)
	require.NotNil(t, doc, "%s/%s missing", collection, id)
	return doc
}

// Response is a decoded envelope.
type Response struct {
	Code    int
	Header  http.Header
	Raw     []byte
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Meta    json.RawMessage `json:"meta"`
}

// Into decodes the data field into v.
func (r Response) Into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), string(r.Raw))
}

// Do sends a request through the router. A non-empty body is sent as JSON.
func (e *Env) Do(t *testing.T, method, path, token, body string) Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)

	res := Response{Code: rec.Code, Header: rec.Header(), Raw: rec.Body.Bytes()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(res.Raw, &res), string(res.Raw))
	}
	return res
}
