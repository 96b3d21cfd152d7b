package trackerservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/amptracker/amp-tracker/internal/api"
	"github.com/amptracker/amp-tracker/internal/api/recovery"
	"github.com/amptracker/amp-tracker/internal/auth"
	"github.com/amptracker/amp-tracker/internal/config"
	"github.com/amptracker/amp-tracker/internal/factory"
	"github.com/amptracker/amp-tracker/internal/health"
	"github.com/amptracker/amp-tracker/internal/logger"
	"github.com/amptracker/amp-tracker/internal/services"
	"github.com/amptracker/amp-tracker/internal/store"
)

// Run starts the tracker service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("tracker-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Tracker service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}

	authorizer := newAuthorizer(cfg)

	// Build router
	router := buildRouter(st, authorizer, log)

	// Start health checkers and bind service health
	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// HTTP server and serve
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// newAuthorizer selects the key resolver for the deployment mode.
func newAuthorizer(cfg *config.Config) auth.Authorizer {
	if cfg.IsDevMode() {
		return auth.NewDevAuthorizer()
	}
	// TODO: production key service integration; the static table is the
	// only resolver implemented so far.
	return auth.NewDevAuthorizer()
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(st store.Store, authorizer auth.Authorizer, log zerolog.Logger) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	templateSvc := services.NewTemplateService(st)
	userSvc := services.NewUserService(st)
	daySvc := services.NewDayService(st, templateSvc, services.SystemClock, log)

	// Health (unauthenticated)
	healthHandler := api.NewHealthHandler()
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// Users and days
	userHandler := api.NewUserHandler(userSvc)
	dayHandler := api.NewDayHandler(daySvc)
	users := root.PathPrefix("/api/users").Subrouter()
	users.Use(api.RequireActor(authorizer))
	users.HandleFunc("", userHandler.CreateUser).Methods("POST")
	users.HandleFunc("/{userId}", userHandler.GetUser).Methods("GET")
	users.HandleFunc("/{userId}", userHandler.DeleteUser).Methods("DELETE")
	users.HandleFunc("/{userId}/days/{date}", dayHandler.HydrateDay).Methods("GET")
	users.HandleFunc("/{userId}/days/{date}/checklists/{checklistId}/items/{itemId}/complete", dayHandler.CompleteChecklistItem).Methods("POST")
	users.HandleFunc("/{userId}/days/{date}/checklists/{checklistId}/items/{itemId}/complete", dayHandler.UncompleteChecklistItem).Methods("DELETE")
	users.HandleFunc("/{userId}/days/{date}/checklists/{checklistId}/notes", dayHandler.SetChecklistNotes).Methods("PUT")
	users.HandleFunc("/{userId}/days/{date}/blocks/{blockId}/toggle", dayHandler.ToggleTimeBlock).Methods("POST")
	users.HandleFunc("/{userId}/days/{date}/blocks/{blockId}/notes", dayHandler.AddBlockNote).Methods("POST")
	users.HandleFunc("/{userId}/days/{date}/todos", dayHandler.AddTodoItem).Methods("POST")
	users.HandleFunc("/{userId}/days/{date}/todos/{itemId}", dayHandler.SetTodoCompleted).Methods("PUT")
	users.HandleFunc("/{userId}/days/{date}/wake-time", dayHandler.SetWakeTime).Methods("PUT")

	// Templates: reads behind actor auth, mutations behind admin keys
	templateHandler := api.NewTemplateHandler(templateSvc)
	templateReads := root.PathPrefix("/api/templates").Methods("GET").Subrouter()
	templateReads.Use(api.RequireActor(authorizer))
	templateReads.HandleFunc("/{role}", templateHandler.GetTemplate).Methods("GET")
	templateReads.HandleFunc("/{role}/versions", templateHandler.ListVersions).Methods("GET")

	templateWrites := root.PathPrefix("/api/templates").Subrouter()
	templateWrites.Use(api.RequireAdmin(authorizer))
	templateWrites.HandleFunc("", templateHandler.PutTemplate).Methods("POST")
	templateWrites.HandleFunc("/{role}/versions/{version}/activate", templateHandler.Activate).Methods("POST")

	return root
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Health checkers start as unhealthy and need time to run their first check
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
