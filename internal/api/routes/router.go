package routes

import (
	"net/http"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/api/loaders"
	"github.com/hemoglovida/dashboard/backend/internal/api/middleware"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
)

// Handlers groups the route handlers. Nil handlers leave their routes unregistered,
// which lets cmd/sse serve the streams alone.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Appointment *handlers.AppointmentHandler
	Schedule    *handlers.ScheduleHandler
	Donor       *handlers.DonorHandler
	Campaign    *handlers.CampaignHandler
	Facility    *handlers.FacilityHandler
	Activity    *handlers.ActivityHandler
	SSE         *handlers.SSEHandler
}

// Router holds all route handlers
type Router struct {
	mux      *http.ServeMux
	handlers Handlers

	sessions        middleware.SessionVerifier
	donors          loaders.DonorFetcher
	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	h Handlers,
	sessions middleware.SessionVerifier,
	donors loaders.DonorFetcher,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		handlers:        h,
		sessions:        sessions,
		donors:          donors,
		cacheMiddleware: cacheMiddleware,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	session := middleware.RequireSession(r.sessions)
	admin := func(fn http.HandlerFunc) http.Handler {
		var h http.Handler = fn
		if r.donors != nil {
			h = loaders.Middleware(r.donors)(h)
		}
		// cached responses must stay behind the session check
		if r.cacheMiddleware != nil {
			h = r.cacheMiddleware.Middleware(h)
		}
		return session(middleware.RequireAdmin(h))
	}

	// Auth endpoints
	if h := r.handlers.Auth; h != nil {
		r.mux.HandleFunc("POST /api/auth/sign-in", h.SignIn)
		r.mux.HandleFunc("POST /api/auth/sign-out", h.SignOut)
		r.mux.Handle("GET /api/auth/me", session(http.HandlerFunc(h.Me)))
	}

	// Appointment endpoints
	if h := r.handlers.Appointment; h != nil {
		r.mux.Handle("GET /api/appointments", admin(h.ListAppointments))
		r.mux.Handle("POST /api/appointments", admin(h.CreateAppointment))
		r.mux.Handle("GET /api/appointments/{id}", admin(h.GetAppointment))
		r.mux.Handle("POST /api/appointments/{id}/actions", admin(h.ApplyAction))
	}
	if h := r.handlers.Schedule; h != nil {
		r.mux.Handle("GET /api/schedule", admin(h.GetSchedule))
	}

	// Donor endpoints
	if h := r.handlers.Donor; h != nil {
		r.mux.Handle("GET /api/donors", admin(h.ListDonors))
		r.mux.Handle("POST /api/donors", admin(h.CreateDonor))
		r.mux.Handle("POST /api/donors/reindex", admin(h.ReindexDonors))
		r.mux.Handle("GET /api/donors/{id}", admin(h.GetDonor))
		r.mux.Handle("PUT /api/donors/{id}", admin(h.UpdateDonor))
		r.mux.Handle("POST /api/donors/{id}/deactivate", admin(h.DeactivateDonor))
	}

	// Campaign endpoints
	if h := r.handlers.Campaign; h != nil {
		r.mux.Handle("GET /api/campaigns", admin(h.ListCampaigns))
		r.mux.Handle("POST /api/campaigns", admin(h.CreateCampaign))
		r.mux.Handle("GET /api/campaigns/{id}", admin(h.GetCampaign))
		r.mux.Handle("PUT /api/campaigns/{id}", admin(h.UpdateCampaign))
		r.mux.Handle("DELETE /api/campaigns/{id}", admin(h.DeleteCampaign))
		r.mux.Handle("POST /api/campaigns/{id}/alert", admin(h.SendAlert))
	}

	// Facility profile
	if h := r.handlers.Facility; h != nil {
		r.mux.Handle("GET /api/facility", admin(h.GetFacility))
		r.mux.Handle("PUT /api/facility", admin(h.UpdateFacility))
	}

	// Activity log and dashboard
	if h := r.handlers.Activity; h != nil {
		r.mux.Handle("GET /api/activities", admin(h.ListActivities))
		r.mux.Handle("GET /api/dashboard/summary", admin(h.GetSummary))
	}

	// Live streams
	if h := r.handlers.SSE; h != nil {
		r.mux.Handle("GET /api/stream/appointments", admin(h.StreamAppointments))
		r.mux.Handle("GET /api/stream/schedule", admin(h.StreamSchedule))
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// Nothing outside the mux may copy the request, or the matched pattern
	// is lost to the observability middleware.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflights skip the session check
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
