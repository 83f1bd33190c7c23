package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"consultdesk/internal/adapters/bookingapi"
	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/adapters/http/perf"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Settings are the page-level options taken from configuration.
type Settings struct {
	HorizonDays       int
	Location          *time.Location
	VKRTypes          []string
	MagistracyOptions []string
	Secure            bool
}

// Options holds everything NewMux wires together.
type Options struct {
	API         *bookingapi.Client
	Sessions    middleware.SessionStore
	Collector   *perf.Collector
	Settings    Settings
	CSRFKey     []byte
	RateLimit   int
	SlowRequest time.Duration

	// TrustedOrigins are extra hosts allowed to post forms, e.g. a reverse proxy name.
	TrustedOrigins []string
}

// Global API client (set by NewMux)
var api *bookingapi.Client

// Global session store (set by NewMux)
var sessions middleware.SessionStore

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global page settings (set by NewMux)
var settings Settings

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options) http.Handler {
	api = opts.API
	sessions = opts.Sessions
	perfCollector = opts.Collector
	settings = opts.Settings

	mux := http.NewServeMux()
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("GET /metrics", promhttp.Handler())
	registerRoutes(mux)

	// Rate limiter: form submissions per minute per IP
	limiter := middleware.NewRateLimiter(opts.RateLimit, time.Minute)

	// Apply middleware: Timing -> RateLimit -> Sessions -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.Settings.Secure, opts.TrustedOrigins),
		middleware.Sessions(opts.Sessions, opts.Settings.Secure),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Collector, opts.SlowRequest),
	)
}

func registerRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	mux.HandleFunc("GET /{$}", handleLanding)
	mux.HandleFunc("GET /health", handleHealth)

	// Student
	mux.HandleFunc("GET /student", handleStudentPage)
	mux.HandleFunc("POST /student/slots/{id}/select", handleSelectSlot)
	mux.HandleFunc("POST /student/experts/prev", handleExpertsPrev)
	mux.HandleFunc("POST /student/experts/next", handleExpertsNext)
	mux.HandleFunc("POST /student/book", handleBook)
	mux.HandleFunc("POST /student/cancel", handleCancel)
	mux.HandleFunc("POST /student/popup/close", handleClosePopup)
	mux.HandleFunc("GET /student/receipt", handleReceipt)

	// Expert
	mux.HandleFunc("GET /expert/login", handleExpertLoginPage)
	mux.HandleFunc("POST /expert/login", handleExpertLogin)
	mux.HandleFunc("POST /expert/logout", handleExpertLogout)
	mux.Handle("GET /expert", middleware.RequireExpert(http.HandlerFunc(handleExpertPage)))

	// Admin
	mux.HandleFunc("GET /admin/login", handleAdminLoginPage)
	mux.HandleFunc("POST /admin/login", handleAdminLogin)
	mux.HandleFunc("POST /admin/logout", handleAdminLogout)
	mux.Handle("GET /admin", admin(handleAdminPage))
	mux.Handle("GET /admin/perf", admin(handleAdminPerf))
	mux.Handle("POST /admin/experts", admin(handleSaveExpert))
	mux.Handle("POST /admin/experts/refresh", admin(handleRefreshExperts))
	mux.Handle("POST /admin/experts/{id}/delete", admin(handleDeleteExpert))
	mux.Handle("POST /admin/slots", admin(handleSaveSlot))
	mux.Handle("POST /admin/slots/{id}/delete", admin(handleDeleteSlot))
	mux.Handle("POST /admin/bookings/refresh", admin(handleRefreshBookings))
	mux.Handle("POST /admin/bookings/{id}", admin(handleUpdateQuestion))
	mux.Handle("POST /admin/bookings/{id}/delete", admin(handleDeleteBooking))
}
