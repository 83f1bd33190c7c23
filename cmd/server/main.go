package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"consultdesk/internal/adapters/bookingapi"
	web "consultdesk/internal/adapters/http"
	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/adapters/http/perf"
	"consultdesk/internal/adapters/storage"
	"consultdesk/internal/adapters/storage/session"
	"consultdesk/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// sessionPurgeInterval is how often expired sessions are removed.
const sessionPurgeInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Performance instrumentation shared by requests, upstream calls and session queries
	collector := perf.NewCollector(perf.DefaultRingSize)

	store, closeStore, err := openSessionStore(ctx, cfg, collector)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer closeStore()
	middleware.StartJanitor(ctx, store, sessionPurgeInterval)

	client := bookingapi.New(cfg.APIBaseURL,
		bookingapi.WithTimeout(cfg.APITimeout),
		bookingapi.WithLocation(cfg.Location),
		bookingapi.WithCollector(collector),
		bookingapi.WithSlowThreshold(cfg.SlowRequest),
	)

	csrfKey := cfg.CSRFKey
	if len(csrfKey) == 0 {
		if cfg.IsProduction() {
			log.Fatal("CONSULT_CSRF_KEY is required in production")
		}
		csrfKey = cfg.SessionKey[:]
		slog.Warn("csrf_key_derived", "reason", "CONSULT_CSRF_KEY not set; tokens reset on restart")
	}

	handler := web.NewMux(web.Options{
		API:       client,
		Sessions:  store,
		Collector: collector,
		Settings: web.Settings{
			HorizonDays:       cfg.HorizonDays,
			Location:          cfg.Location,
			VKRTypes:          cfg.VKRTypes,
			MagistracyOptions: cfg.MagistracyOptions,
			Secure:            cfg.IsProduction(),
		},
		CSRFKey:        csrfKey,
		RateLimit:      cfg.RateLimit,
		SlowRequest:    cfg.SlowRequest,
		TrustedOrigins: cfg.TrustedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.APITimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting",
		"version", version,
		"addr", cfg.Addr,
		"env", cfg.Env,
		"api", cfg.APIBaseURL,
		"timezone", cfg.Location.String(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_stopped")
}

// openSessionStore returns the sqlite-backed store when CONSULT_SESSION_DB is set,
// otherwise an in-memory store. The returned func releases the database.
func openSessionStore(ctx context.Context, cfg *config.Config, collector *perf.Collector) (middleware.SessionStore, func(), error) {
	if cfg.SessionDB == "" {
		slog.Info("session_store", "kind", "memory")
		return middleware.NewMemoryStore(), func() {}, nil
	}

	db, err := storage.Open(cfg.SessionDB)
	if err != nil {
		return nil, nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	version, _ := storage.SchemaVersion(ctx, db)
	slog.Info("session_store", "kind", "sqlite", "path", cfg.SessionDB, "schema", version)

	timed := storage.NewTimedDB(db, collector, cfg.SlowRequest)
	store := session.NewSQLiteStore(timed, session.NewSealer(cfg.SessionKey))
	return store, func() { timed.Close() }, nil
}
