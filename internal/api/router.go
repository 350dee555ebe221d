package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
)

// NewRouter creates a chi router with all /api/v1 routes.
// The auth endpoints are public; everything else requires a bearer token.
// events, if non-nil, is mounted at GET /events inside the authenticated group.
func NewRouter(svc *noteservice.Service, accounts *noteservice.Accounts, events http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAuthHandler(accounts)

	r := chi.NewRouter()

	r.Post("/auth/signup", ah.Signup)
	r.Post("/auth/login", ah.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(accounts))

		r.Get("/auth/me", ah.Me)

		// Notes CRUD. Both slash forms are accepted.
		r.Get("/notes", h.ListNotes)
		r.Get("/notes/", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Post("/notes/", h.CreateNote)
		for _, p := range []string{"/notes/{id}", "/notes/{id}/"} {
			r.Get(p, h.GetNote)
			r.Put(p, h.UpdateNote)
			r.Delete(p, h.DeleteNote)
		}

		if events != nil {
			r.Get("/events", events.ServeHTTP)
		}
	})

	return r
}

// OwnerID returns the authenticated account id of r, for handlers mounted behind AuthMiddleware.
func OwnerID(r *http.Request) string {
	if u := UserFrom(r.Context()); u != nil {
		return u.ID
	}
	return ""
}
