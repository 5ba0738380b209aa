package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/adapter/cache"
	"github.com/evstation/charge-station/internal/adapter/eventbus"
	"github.com/evstation/charge-station/internal/adapter/http/fiber/middleware"
	"github.com/evstation/charge-station/internal/adapter/persistence"
	"github.com/evstation/charge-station/internal/adapter/router"
	"github.com/evstation/charge-station/internal/adapter/storage/postgres"
	"github.com/evstation/charge-station/internal/adapter/vault"
	wsAdapter "github.com/evstation/charge-station/internal/adapter/websocket"
	"github.com/evstation/charge-station/internal/clock"
	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/observability/telemetry"
	"github.com/evstation/charge-station/internal/ports"
	"github.com/evstation/charge-station/internal/service/accounts"
	"github.com/evstation/charge-station/internal/service/auth"
	"github.com/evstation/charge-station/internal/service/charging"
	"github.com/evstation/charge-station/internal/service/email"
	"github.com/evstation/charge-station/internal/service/health"
	"github.com/evstation/charge-station/internal/service/notify"
	"github.com/evstation/charge-station/internal/service/reports"
	"github.com/evstation/charge-station/internal/service/scheduler"
	"github.com/evstation/charge-station/internal/station"
	"github.com/evstation/charge-station/internal/tcpserver"
	"github.com/evstation/charge-station/pkg/config"

	_ "github.com/evstation/charge-station/internal/observability/telemetry"
)

const (
	serviceName    = "charge-station"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting charge station",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	tracerProvider, err := telemetry.InitTracer(serviceName)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// 4. Resolve secrets from Vault, if enabled, overriding plain config.
	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			logger.Warn("vault unavailable, using config-file secrets", zap.Error(err))
		} else {
			if dsn, err := sm.GetDatabaseDSN(); err == nil && dsn != "" {
				cfg.Database.URL = dsn
			}
			if key, err := sm.GetJWTSigningKey(); err == nil && key != "" {
				cfg.JWT.Secret = key
			}
		}
	}

	// 5. Build the station: stores, queue manager, pile fleet.
	st := station.New(clock.RealClock{}, clock.UUIDSource{}, cfg.Station.MainQueueCapacity)
	st.OptimizedDispatch = cfg.Station.OptimizedDispatch
	seedPiles(st, cfg.Station)

	// 6. Restore persisted state and wire each store to flush on
	// every mutation, per spec §6's one-file-per-entity-kind rule.
	writer, err := persistence.NewJSONWriter(cfg.Station.PersistenceDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize persistence writer", zap.Error(err))
	}
	loadStation(st, cfg.Station.PersistenceDir, logger)
	wirePersistence(st, writer)

	// 7. Optional Postgres bill ledger.
	var billLedger *postgres.BillLedger
	var healthDB *sql.DB
	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database.URL, logger)
		if err != nil {
			logger.Warn("postgres bill ledger unavailable, running without it", zap.Error(err))
		} else {
			if cfg.Database.AutoMigrate {
				if err := postgres.RunMigrations(db); err != nil {
					logger.Warn("bill ledger migration failed", zap.Error(err))
				}
			}
			billLedger = postgres.NewBillLedger(db, logger)
			healthDB, _ = db.DB()
			defer postgres.Close(db)
		}
	}

	// 8. Optional Redis cache (admin report caching), plus
	// a bare client the health checker pings directly.
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, logger)
	if err != nil {
		logger.Warn("redis not available, running without cache", zap.Error(err))
		redisCache = nil
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	var healthRedis *redis.Client
	if cfg.Redis.URL != "" {
		if opts, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			healthRedis = redis.NewClient(opts)
			defer healthRedis.Close()
		}
	}

	// 9. Optional event bus (NATS or RabbitMQ, selectable) broadcasting
	// tick/session/fault events to admin dashboard subscribers.
	messageQueue := connectEventBus(cfg.EventBus, logger)
	if messageQueue != nil {
		defer messageQueue.Close()
	}

	// 10. Email (SendGrid or SMTP) and driver bill-receipt notification.
	emailSvc, err := email.NewService(buildEmailConfig(cfg.Email), logger)
	if err != nil {
		logger.Warn("email service unavailable, bill receipts will not be sent", zap.Error(err))
		emailSvc = nil
	}
	billNotifier := notify.New(st, emailSvc, logger)

	// 11. Core services.
	credentials := auth.NewCredentialStore()
	accountsSvc := accounts.New(st, credentials, emailSvc)

	chargeSvc := charging.New(st).WithNotifier(billNotifier)
	if billLedger != nil {
		chargeSvc = chargeSvc.WithLedger(billLedger)
	}
	if messageQueue != nil {
		chargeSvc = chargeSvc.WithEvents(messageQueue)
	}

	schedLogger := slog.New(zapSlogHandler{logger})
	sched := scheduler.New(st, chargeSvc, cfg.Station.SchedulerTick, schedLogger)
	if messageQueue != nil {
		sched.WithEvents(messageQueue)
	}

	schedCtx, cancelSched := context.WithCancel(context.Background())
	go sched.Run(schedCtx)

	// 12. Wire protocol router, driving the scheduler's wake channel
	// after any action that may enable progress (spec §4.6).
	rt := router.New(st, accountsSvc, chargeSvc, sched.Wake)

	// 13. TCP server (spec §6).
	tcpAddr := fmt.Sprintf(":%d", cfg.TCP.Port)
	tcp := tcpserver.New(tcpAddr, rt, cfg.TCP.ReadTimeout, cfg.TCP.WriteTimeout, logger)
	tcpErrCh := make(chan error, 1)
	tcpCtx, cancelTCP := context.WithCancel(context.Background())
	go func() {
		if err := tcp.ListenAndServe(tcpCtx); err != nil {
			tcpErrCh <- err
		}
	}()

	// 14. Admin dashboard: JWT auth, health, metrics, websocket push,
	// pile/queue views.
	adminTokens := auth.NewAdminTokenService(cfg.JWT.Secret, cfg.JWT.AdminTokenDuration, cfg.JWT.AdminOperatorID, logger)
	natsURL := ""
	if messageQueue != nil {
		natsURL = cfg.EventBus.URL
	}
	healthSvc := health.NewService(&health.Config{Version: serviceVersion, DB: healthDB, Redis: healthRedis, NatsURL: natsURL}, logger)

	wsHub := wsAdapter.NewHub()
	go wsHub.Run()
	go pushPileUpdates(schedCtx, st, wsHub, cfg.Station.SchedulerTick)

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(middleware.NewCORS(cfg.CORS))
	if cfg.CircuitBreaker.Enabled {
		app.Use(middleware.CircuitBreakerWithLogger(logger))
	}

	health.NewFiberHandler(healthSvc).RegisterRoutes(app)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	})

	app.Post("/admin/login", func(c *fiber.Ctx) error {
		var body struct {
			OperatorID string `json:"operator_id"`
			Password   string `json:"password"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.OperatorID != cfg.JWT.AdminOperatorID {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		if err := credentials.Verify(cfg.JWT.AdminOperatorDigest, body.Password); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		token, err := adminTokens.Issue()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue token"})
		}
		return c.JSON(fiber.Map{"token": token})
	})

	admin := app.Group("/admin", middleware.AdminAuthRequired(adminTokens))
	admin.Get("/piles", func(c *fiber.Ctx) error {
		return c.JSON(st.Piles.GetAll())
	})
	admin.Get("/piles/:id/queue", func(c *fiber.Ctx) error {
		pile, ok := st.Piles.Get(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "pile not found"})
		}
		return c.JSON(st.Queue.Snapshot(pile.Type))
	})
	admin.Get("/reports/:bucket", cachedReportsHandler(st, redisCache, logger))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/updates", websocket.New(func(c *websocket.Conn) {
		userID := c.Query("userId", "guest")
		wsHub.AddClient(c, userID)
	}))

	go func() {
		logger.Info("starting admin HTTP server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Error("admin HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("charge station ready",
		zap.Int("tcp_port", cfg.TCP.Port),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("optimized_dispatch", st.OptimizedDispatch),
	)

	// 15. Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-tcpErrCh:
		logger.Error("tcp server exited unexpectedly", zap.Error(err))
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cancelSched()
	cancelTCP()
	if err := tcp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tcp server shutdown did not fully drain", zap.Error(err))
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("admin http server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

// seedPiles creates the fast/trickle pile fleet the config describes,
// named the way original_source/server/charge_server.py does ("F01",
// "T01", ...).
func seedPiles(st *station.Station, cfg config.StationConfig) {
	var piles []domain.ChargingPile
	for i := 1; i <= cfg.FastPileCount; i++ {
		piles = append(piles, domain.ChargingPile{
			PileID:  fmt.Sprintf("F%02d", i),
			Type:    domain.ModeFast,
			PowerKW: cfg.FastPowerKW,
			State:   domain.PileIdle,
		})
	}
	for i := 1; i <= cfg.TricklePileCount; i++ {
		piles = append(piles, domain.ChargingPile{
			PileID:  fmt.Sprintf("T%02d", i),
			Type:    domain.ModeTrickle,
			PowerKW: cfg.TricklePowerKW,
			State:   domain.PileIdle,
		})
	}
	st.SeedPiles(piles)
}

// loadStation restores each entity store from its last JSON snapshot,
// if one exists. A fresh station with no prior data is not an error.
func loadStation(st *station.Station, dir string, logger *zap.Logger) {
	var users map[string]domain.User
	if err := persistence.Load(dir, "users", &users); err != nil {
		logger.Warn("failed to load users snapshot", zap.Error(err))
	}
	for k, v := range users {
		st.Users.Put(k, v)
	}

	var bills map[string]domain.Bill
	if err := persistence.Load(dir, "bills", &bills); err != nil {
		logger.Warn("failed to load bills snapshot", zap.Error(err))
	}
	for k, v := range bills {
		st.Bills.Put(k, v)
	}

	var requests map[string]domain.ChargingRequest
	if err := persistence.Load(dir, "requests", &requests); err != nil {
		logger.Warn("failed to load requests snapshot", zap.Error(err))
	}
	for k, v := range requests {
		if !v.Active() {
			st.Requests.Put(k, v)
		}
	}

	// Sessions and piles are not restored across restarts: a session
	// in flight when the process died has no safe resumption point
	// (spec §9 Open Questions), so piles always start IDLE and any
	// stranded request is re-admitted by the driver.
}

func wirePersistence(st *station.Station, writer *persistence.JSONWriter) {
	st.Users.OnChange(func(rows map[string]domain.User) {
		_ = writer.Flush("users", persistence.ToInterfaceMap(rows))
	})
	st.Bills.OnChange(func(rows map[string]domain.Bill) {
		_ = writer.Flush("bills", persistence.ToInterfaceMap(rows))
	})
	st.Requests.OnChange(func(rows map[string]domain.ChargingRequest) {
		_ = writer.Flush("requests", persistence.ToInterfaceMap(rows))
	})
	st.Piles.OnChange(func(rows map[string]domain.ChargingPile) {
		_ = writer.Flush("piles", persistence.ToInterfaceMap(rows))
	})
	st.Sessions.OnChange(func(rows map[string]domain.ChargingSession) {
		_ = writer.Flush("sessions", persistence.ToInterfaceMap(rows))
	})
}

func connectEventBus(cfg config.EventBusConfig, logger *zap.Logger) eventbus.MessageQueue {
	if cfg.URL == "" {
		return nil
	}
	var mq eventbus.MessageQueue
	var err error
	switch strings.ToLower(cfg.Backend) {
	case "rabbitmq":
		mq, err = eventbus.NewRabbitMQQueue(cfg.URL, logger)
	default:
		mq, err = eventbus.NewNATSQueue(cfg.URL, logger)
	}
	if err != nil {
		logger.Warn("event bus not available, running without it", zap.String("backend", cfg.Backend), zap.Error(err))
		return nil
	}
	return mq
}

func buildEmailConfig(cfg config.EmailConfig) *email.Config {
	return &email.Config{
		Provider:       cfg.Provider,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		FromEmail:      cfg.From,
		FromName:       cfg.FromName,
	}
}

// pushPileUpdates periodically broadcasts the pile fleet's state over
// the admin dashboard websocket hub, giving SPEC_FULL.md's realtime
// push feed something to actually push.
func pushPileUpdates(ctx context.Context, st *station.Station, hub *wsAdapter.Hub, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(st.Piles.GetAll())
			if err != nil {
				continue
			}
			hub.Broadcast(payload)
		}
	}
}

// cachedReportsHandler serves the same aggregation as the wire
// protocol's get_reports action over HTTP, fronted by
// reports.GenerateCached so each bucket's rows are cached in Redis
// for a few seconds instead of recomputed on every dashboard refresh.
func cachedReportsHandler(st *station.Station, redisCache ports.Cache, logger *zap.Logger) fiber.Handler {
	const ttl = 5 * time.Second
	return func(c *fiber.Ctx) error {
		bucket, ok := reports.ParseBucket(c.Params("bucket"))
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bucket"})
		}

		rows, err := reports.GenerateCached(c.Context(), st, redisCache, bucket, st.Clock.Now(), ttl)
		if err != nil {
			logger.Warn("failed to generate report", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate report"})
		}
		return c.JSON(rows)
	}
}

// zapSlogHandler adapts *zap.Logger to slog.Handler for
// scheduler.New, which speaks log/slog to stay decoupled from the
// logging library choice at the package boundary.
type zapSlogHandler struct{ log *zap.Logger }

func (h zapSlogHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h zapSlogHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]zap.Field, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zap.Any(a.Key, a.Value.Any()))
		return true
	})
	h.log.With(fields...).Info(r.Message)
	return nil
}
func (h zapSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h zapSlogHandler) WithGroup(name string) slog.Handler       { return h }
