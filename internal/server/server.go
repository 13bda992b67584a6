package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/api"
	"github.com/s-hiraoku/termsession/internal/api/middleware"
	"github.com/s-hiraoku/termsession/internal/bridge"
	"github.com/s-hiraoku/termsession/internal/config"
	"github.com/s-hiraoku/termsession/internal/logging"
	"github.com/s-hiraoku/termsession/internal/monitoring"
	"github.com/s-hiraoku/termsession/internal/session"
	"github.com/s-hiraoku/termsession/internal/store"
	"github.com/s-hiraoku/termsession/internal/terminal"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and the persistence engine's wiring.
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	httpSrv   *http.Server
	store     *store.Store
	terminals *terminal.Manager
	bridge    *bridge.Bridge
	coord     *session.Coordinator
	scheduler *session.Scheduler
}

// New builds the full engine: durable store, terminal manager, surface
// bridge, session coordinator, auto-save scheduler, and the HTTP API.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing termsession server",
		zap.String("port", cfg.Server.Port),
		zap.String("store_path", cfg.Store.Path),
		zap.String("workspace", cfg.Store.Workspace))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := monitoring.New(registry)
	httpMetrics := monitoring.NewHTTPMetrics(registry)

	st, err := store.Open(cfg.Store.Path, cfg.Store.Workspace)
	if err != nil {
		return nil, err
	}

	terminals := terminal.NewManager(logger)

	// Bridge and coordinator reference each other: the bridge feeds
	// surface events in, the coordinator posts messages out.
	br := bridge.New(nil, logger, metrics)

	coord := session.NewCoordinator(session.Options{
		Config:    cfg.Session,
		Store:     st,
		Terminals: terminals,
		Surface:   br,
		Logger:    logger,
		Metrics:   metrics,
	})
	br.SetSink(coord)
	terminals.SetNotifier(coord)

	scheduler := session.NewScheduler(coord, cfg.Autosave, logger)
	coord.SetScheduler(scheduler)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpMetrics.Middleware())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	handlers := api.NewHandlers(coord, terminals, br)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.POST("/session/save", handlers.SaveSession)
	router.POST("/session/restore", handlers.RestoreSession)
	router.GET("/session", handlers.GetSessionInfo)
	router.DELETE("/session", handlers.ClearSession)

	router.GET("/terminals", handlers.ListTerminals)
	router.POST("/terminals", handlers.CreateTerminal)
	router.DELETE("/terminals/:id", handlers.CloseTerminal)
	router.POST("/terminals/:id/focus", handlers.FocusTerminal)
	router.POST("/terminals/:id/rename", handlers.RenameTerminal)

	router.GET("/bridge", br.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpSrv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	logger.Info("server initialized")
	return &Server{
		cfg:       cfg,
		logger:    logger,
		httpSrv:   httpSrv,
		store:     st,
		terminals: terminals,
		bridge:    br,
		coord:     coord,
		scheduler: scheduler,
	}, nil
}

// Run starts the auto-save scheduler and serves HTTP until Close.
func (s *Server) Run() error {
	s.scheduler.Start()
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the engine down in dependency order: stop the auto-save
// triggers, run one final cache-backed save, stop HTTP, kill terminals,
// and close the store last.
func (s *Server) Close() error {
	s.logger.Info("shutting down")

	s.scheduler.Stop()

	res := s.coord.Save(context.Background(), session.SaveOptions{PreferCache: true})
	if !res.Success {
		s.logger.Warn("final save failed", zap.String("message", res.Message))
	} else {
		s.logger.Info("final save completed", zap.Int("terminals", res.TerminalCount))
	}
	s.coord.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}

	s.terminals.Shutdown()

	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed", zap.Error(err))
		return err
	}

	s.logger.Sync()
	return nil
}
