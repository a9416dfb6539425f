// Route registration and go-chi router setup.
// HTML form routes and the JSON API share one session middleware and one controller.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/cleverq/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/cleverq/internal/api/middleware"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Chat   handlers.ChatService
	Signer apmiddleware.TokenSigner
}

// NewRouter creates and configures a new chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	// Health check — no session, used by load balancers and health probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// ===== SESSION ROUTES (cookie issued on first visit) =====
	r.Group(func(r chi.Router) {
		r.Use(apmiddleware.Session(deps.Signer))

		page := handlers.NewPageHandler(deps.Chat)
		r.Get("/", page.Index)                 // GET /
		r.Post("/submit", page.Submit)         // POST /submit
		r.Post("/tabs", page.CreateTab)        // POST /tabs
		r.Post("/tabs/select", page.SelectTab) // POST /tabs/select
		r.Post("/session/reset", page.Reset)   // POST /session/reset

		api := handlers.NewSessionAPIHandler(deps.Chat)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/session", api.GetSession)       // GET /api/v1/session
			r.Delete("/session", api.DeleteSession) // DELETE /api/v1/session
			r.Post("/submit", api.Submit)           // POST /api/v1/submit
			r.Post("/tabs", api.CreateTab)          // POST /api/v1/tabs
			r.Post("/tabs/select", api.SelectTab)   // POST /api/v1/tabs/select
		})
	})

	return r
}
