package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulsewatch/internal/api/alerts"
	"github.com/good-yellow-bee/pulsewatch/internal/api/middleware"
	"github.com/good-yellow-bee/pulsewatch/internal/api/policies"
	"github.com/good-yellow-bee/pulsewatch/internal/api/respond"
	"github.com/good-yellow-bee/pulsewatch/internal/api/rules"
	"github.com/good-yellow-bee/pulsewatch/internal/api/suppressions"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.Recoverer)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			ruleHandler := rules.NewHandler(s.storage)
			r.Get("/", ruleHandler.List)
			r.Post("/", ruleHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ruleHandler.GetByID)
				r.Put("/", ruleHandler.Update)
				r.Delete("/", ruleHandler.Delete)
				r.Post("/enable", ruleHandler.SetEnabled(true))
				r.Post("/disable", ruleHandler.SetEnabled(false))
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			alertHandler := alerts.NewHandler(s.storage, s.engine)
			r.Get("/", alertHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", alertHandler.GetByID)
				r.Post("/acknowledge", alertHandler.Acknowledge)
				r.Post("/resolve", alertHandler.Resolve)
				r.Get("/deliveries", alertHandler.Deliveries)
			})
		})

		r.Route("/suppressions", func(r chi.Router) {
			suppressionHandler := suppressions.NewHandler(s.storage)
			r.Get("/", suppressionHandler.List)
			r.Post("/", suppressionHandler.Create)
			r.Delete("/{id}", suppressionHandler.Delete)
		})

		r.Route("/policies", func(r chi.Router) {
			policyHandler := policies.NewHandler(s.storage)
			r.Get("/", policyHandler.List)
			r.Post("/", policyHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", policyHandler.GetByID)
				r.Put("/", policyHandler.Update)
				r.Delete("/", policyHandler.Delete)
			})
		})

		// Manual triggers for the scheduler's two passes, useful for
		// operations and integration testing.
		r.Post("/workspaces/{workspaceID}/evaluate", func(w http.ResponseWriter, r *http.Request) {
			workspaceID := chi.URLParam(r, "workspaceID")
			result, err := s.engine.EvaluateRules(r.Context(), workspaceID)
			if err != nil {
				respond.JSONError(w, respond.ErrInternalServer)
				return
			}
			errs := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				errs = append(errs, e.Error())
			}
			respond.OK(w, map[string]interface{}{
				"evaluated":  result.Evaluated,
				"triggered":  result.Triggered,
				"suppressed": result.Suppressed,
				"errors":     errs,
			})
		})

		r.Post("/escalations/check", func(w http.ResponseWriter, r *http.Request) {
			if err := s.engine.CheckEscalation(r.Context()); err != nil {
				respond.JSONError(w, respond.ErrInternalServer)
				return
			}
			respond.OK(w, map[string]string{"status": "ok"})
		})

		// Registered notification channels, for rule authoring.
		r.Get("/channels", func(w http.ResponseWriter, r *http.Request) {
			if s.dispatcher == nil {
				respond.OK(w, []string{})
				return
			}
			respond.OK(w, s.dispatcher.Names())
		})
	})

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.OK(w, map[string]string{"status": "ok"})
	})

	return r
}
