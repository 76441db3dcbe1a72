package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/config"
	"github.com/yungbote/earnedvalue-backend/internal/data/db"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	"github.com/yungbote/earnedvalue-backend/internal/events/milestones"
	"github.com/yungbote/earnedvalue-backend/internal/http"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	DB       *gorm.DB
	Metrics  *observability.Metrics
	Repos    repos.Set
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Server   *http.Server
	Consumer *milestones.Consumer

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

// Open connects the database and builds the engine services without any
// network surface. The CLI uses it directly; New builds on it for serve.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	metrics := observability.Init(log, cfg.Metrics.Enabled)

	pg, err := db.NewPostgresService(db.Config{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Name:            cfg.DB.Name,
		SSLMode:         cfg.DB.SSLMode,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := pg.DB().WithContext(ctx)
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	reposet := wireRepos(pg.DB(), log)
	serviceset := wireServices(pg.DB(), log, cfg, reposet, clients, metrics)

	return &App{
		Log:      log,
		Cfg:      cfg,
		DB:       pg.DB(),
		Metrics:  metrics,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		pg:       pg,
	}, nil
}

// New is Open plus the HTTP server, SSE hub, tracing and, when MQ_URL is set,
// the milestone event consumer.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a, err := Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
		Headers:     observability.ParseOtelHeaders(cfg.Otel.Headers),
		SampleRatio: cfg.Otel.SampleRatio,
	})

	a.SSEHub = realtime.NewSSEHub(log)
	a.Server, err = wireServer(a.DB, log, cfg, a.Services, a.SSEHub, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.MQ.URL != "" {
		var dedupe milestones.Deduper
		if a.Clients.Deduper != nil {
			dedupe = a.Clients.Deduper
		}
		handler := milestones.NewHandler(log, a.Services.Components, dedupe, a.Metrics)
		a.Consumer, err = milestones.NewConsumer(log, milestones.ConsumerConfig{
			URL:      cfg.MQ.URL,
			Queue:    cfg.MQ.Queue,
			Prefetch: cfg.MQ.Prefetch,
		}, handler)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init milestones consumer: %w", err)
		}
	} else {
		log.Info("MQ_URL not set; milestone events consumer disabled")
	}
	return a, nil
}

// Run serves HTTP, forwards change events to SSE clients and consumes
// milestone events until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB)
	a.Metrics.StartBudgetCollector(gctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Cfg.Redis.Addr)

	if err := a.Clients.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start change forwarder: %w", err)
	}

	g.Go(func() error {
		return a.Server.Run(gctx, net.JoinHostPort("", a.Cfg.Server.Port))
	})
	if a.Consumer != nil {
		g.Go(func() error {
			return a.Consumer.Run(gctx)
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Consumer != nil {
		a.Consumer.Close()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
