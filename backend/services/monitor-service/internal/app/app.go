package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libredis "solarx/backend/libs/redis"
	"solarx/backend/services/monitor-service/internal/auth"
	"solarx/backend/services/monitor-service/internal/config"
	"solarx/backend/services/monitor-service/internal/db"
	"solarx/backend/services/monitor-service/internal/docstore"
	httpserver "solarx/backend/services/monitor-service/internal/http"
	"solarx/backend/services/monitor-service/internal/http/handlers"
	"solarx/backend/services/monitor-service/internal/http/middleware"
	"solarx/backend/services/monitor-service/internal/ingest"
	"solarx/backend/services/monitor-service/internal/mqtt"
	"solarx/backend/services/monitor-service/internal/repository"
	"solarx/backend/services/monitor-service/internal/service"
	"solarx/backend/services/monitor-service/internal/ws"
)

// App wires all dependencies for the monitor service.
type App struct {
	cfg       *config.Config
	server    *httpserver.Server
	worker    *mqtt.Worker
	dashboard *service.DashboardService
	manager   *ws.Manager
	docs      docstore.Store
	db        *sql.DB
	redis     *goredis.Client
	logger    *zap.Logger
}

// Clock returns time.Now in the configured time zone.
func Clock(cfg *config.Config) (func() time.Time, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return func() time.Time { return time.Now().In(loc) }, nil
}

// OpenDatabase opens the relational store and creates missing tables.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	sqlDB, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, sqlDB, cfg.Database.Driver); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// New builds the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.ValidateServe(); err != nil {
		return nil, err
	}
	now, err := Clock(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	a.db, err = OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Docstore.Backend {
	case config.DocstoreRedis:
		a.redis, err = libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Docstore.RedisAddr,
			Password: cfg.Docstore.RedisPassword,
			DB:       cfg.Docstore.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.docs = docstore.NewRedisStore(a.redis, cfg.Docstore.Key, logger.Named("docstore"))
	default:
		a.docs = docstore.NewMemoryStore()
	}

	batteryRepo := repository.NewBatteryRepository(a.db, now)
	statusRepo := repository.NewStatusRepository(a.db, now)
	telemetryRepo := repository.NewTelemetryRepository(a.db, now)

	dispatcher := ingest.NewDispatcher(ingest.Topics{
		Telemetry: cfg.Topics.Telemetry,
		Status:    cfg.Topics.Status,
		Battery:   cfg.Topics.Battery,
		Voltage:   cfg.Topics.Voltage,
	}, telemetryRepo, statusRepo, batteryRepo, a.docs, now, logger.Named("ingest"))

	a.worker = mqtt.NewWorker(mqtt.Options{
		BrokerURL: cfg.MQTT.BrokerURL,
		ClientID:  cfg.MQTT.ClientID,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		Topics:    dispatcher.Topics(),
		QoS:       byte(cfg.MQTT.QoS),
	}, dispatcher, logger.Named("mqtt"))

	relays := ingest.NewRelayCommander(ingest.RelayTopics{
		Relay1: cfg.Topics.Relay1,
		Relay2: cfg.Topics.Relay2,
	}, a.worker, a.docs, logger.Named("relay"))

	a.dashboard = service.NewDashboardService(batteryRepo, telemetryRepo, statusRepo, relays, a.docs, service.Options{
		LookbackDays: cfg.Energy.LookbackDays,
	}, now, logger.Named("dashboard"))

	verifier, err := auth.NewSolarIDVerifier(cfg.Auth.SolarID, 0)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std(), nil)

	a.manager = ws.NewManager(cfg.WebSocket.PingInterval.Std(), logger.Named("ws"))
	wsServer := ws.NewServer(a.manager, cfg.WebSocket.WriteTimeout.Std(), logger.Named("ws"))

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Login:        handlers.NewLoginHandler(verifier, tokens, logger),
		Health:       handlers.NewHealthHandler(a.worker.Connected),
		Control:      handlers.NewControlHandlers(a.dashboard, logger),
		Data:         handlers.NewDataHandlers(a.dashboard, logger),
		Energy:       handlers.NewEnergyHandlers(a.dashboard, logger),
		StatusStream: wsServer.HandleWS,
	}, middleware.AuthMiddleware(tokens), middleware.RequestLogger(logger.Named("http")))
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	ok = true
	return a, nil
}

// Run starts the HTTP server, MQTT worker, production refresher and status
// stream. The first failure stops the others.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.server.Run(ctx) })
	g.Go(func() error { return a.worker.Run(ctx) })
	g.Go(func() error {
		return a.dashboard.RunProductionRefresh(ctx, a.cfg.Energy.RefreshInterval.Std())
	})
	g.Go(func() error { return a.manager.Start(ctx, a.docs, service.StatusPath) })

	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
