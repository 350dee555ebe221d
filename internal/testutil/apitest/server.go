// Package apitest runs the real notes API in-process for client tests.
package apitest

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/testutil"
)

// Server is a running API plus the services behind it.
type Server struct {
	*httptest.Server
	Notes    *noteservice.Service
	Accounts *noteservice.Accounts
}

// BaseURL is the API root clients should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + "/api/v1"
}

// New starts an API server on a fresh database. The server is closed on test cleanup.
func New(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)

	svc := noteservice.NewService(db, nil)
	accounts := noteservice.NewAccounts(db, auth.NewTokens("test-secret", "quire", time.Hour), nil)

	r := chi.NewRouter()
	r.Mount("/api/v1", api.NewRouter(svc, accounts, nil))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Server{Server: srv, Notes: svc, Accounts: accounts}
}
