package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/data/db"
	"github.com/yungbote/routineflow-backend/internal/http"
	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/envutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	PG       *db.PostgresService
	Router   *gin.Engine
	Cfg      Config
	Catalog  *catalog.Catalog
	Repos    Repos
	Clients  Clients
	Services Services

	shutdown []func(context.Context) error
	cancel   context.CancelFunc
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// Migrate connects to Postgres and applies the schema.
func Migrate(log *logger.Logger) error {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	defer pg.Close()
	if err := pg.AutoMigrateAll(); err != nil {
		return fmt.Errorf("postgres automigrate: %w", err)
	}
	log.Info("schema migrated")
	return nil
}

func New(ctx context.Context, log *logger.Logger, version string, migrate bool) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log, version)

	otelCfg := observability.OtelConfig{ServiceName: "routineflow", Environment: cfg.Environment, Version: version}
	traceShutdown := observability.InitOTel(ctx, log, otelCfg)
	metrics := observability.Init(ctx, log, otelCfg)

	cat := catalog.Load(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if migrate {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	clients, err := wireClients(ctx, log, cfg, cat)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, cat, reposet, clients)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, pg)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, handlerset, middleware)

	return &App{
		Log:      log,
		DB:       theDB,
		PG:       pg,
		Router:   router,
		Cfg:      cfg,
		Catalog:  cat,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		shutdown: []func(context.Context) error{traceShutdown, metrics.Shutdown},
	}, nil
}

// Start runs background listeners. Published events are logged at debug level.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	evtLog := a.Log.With("component", "EventLog")
	if err := a.Clients.Bus.Subscribe(ctx, func(evt realtime.Event) {
		evtLog.Debug("event", "type", string(evt.Type), "user_id", evt.UserID, "occurred_at", evt.OccurredAt)
	}); err != nil {
		a.Log.Warn("event subscription failed", "error", err)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
	srv := &http.Server{Engine: a.Router}
	return srv.Run(ctx, a.Cfg.Addr())
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if err := observability.Shutdown(ctx, a.shutdown...); err != nil {
		a.Log.Warn("telemetry shutdown failed", "error", err)
	}
	if a.PG != nil {
		if err := a.PG.Close(); err != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	a.Log.Sync()
}
