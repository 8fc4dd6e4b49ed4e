package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/micro-nova/templog/internal/models"
)

// Options configures the router.
type Options struct {
	// Mode selects the route set; it is fixed for the life of the process.
	Mode models.Mode
	// DefaultWindow is the sample count /initial-data returns without ?n=.
	DefaultWindow int
	// RateLimit and RateBurst bound mutating requests per client IP.
	RateLimit rate.Limit
	RateBurst int
}

func (o Options) withDefaults() Options {
	if o.DefaultWindow <= 0 {
		o.DefaultWindow = 100
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 2
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 5
	}
	return o
}

// NewRouter creates the HTTP router for the mode the daemon booted into.
func NewRouter(ctrl Controller, bus EventBus, opts Options) http.Handler {
	opts = opts.withDefaults()

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus, defaultWindow: opts.DefaultWindow}
	limit := NewIPRateLimiter(opts.RateLimit, opts.RateBurst).Middleware

	r.Get("/ping", h.ping)
	r.Get("/api/info", h.getInfo)

	if opts.Mode == models.ModeConfiguration {
		r.Get("/", h.configurationPage)
		r.Get("/ap_script.js", h.asset("ap_script.js", "text/javascript"))
		r.With(limit).Post("/save", h.saveCredentials)
		return r
	}

	r.Get("/", h.dataPage)
	r.Get("/sta_script.js", h.asset("sta_script.js", "text/javascript"))
	r.Get("/initial-data", h.initialData)
	r.Get("/temperature_data.csv", h.downloadCSV)
	r.Get("/ws", h.wsFeed)
	r.Get("/api/subscribe", h.sseEvents)
	r.Get("/api/samples", h.getSamples)

	// Mutations
	r.Group(func(r chi.Router) {
		r.Use(limit)

		r.Post("/add-row", h.addRow)
		r.Post("/delete-row", h.deleteRow)
		r.Post("/clear-csv", h.clearCSV)
		r.Post("/clear-wifi", h.clearWifi)

		r.Delete("/api/samples/{ts}", h.deleteSample)
		r.Delete("/api/samples", h.deleteSamples)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
