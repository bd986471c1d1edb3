package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/config"
	"github.com/iliyamo/timingle-admin/internal/database"
	"github.com/iliyamo/timingle-admin/internal/handler"
	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/queue"
	"github.com/iliyamo/timingle-admin/internal/repository"
	"github.com/iliyamo/timingle-admin/internal/repository/memstore"
	"github.com/iliyamo/timingle-admin/internal/router"
	"github.com/iliyamo/timingle-admin/internal/service"
	"github.com/iliyamo/timingle-admin/internal/utils"
)

// stores is the storage backend selected by APP_STORE.
type stores struct {
	tx     service.TxRunner
	users  service.UserStore
	creds  service.CredentialStore
	events service.EventStore
	audit  service.AuditStore
	stats  service.StatsStore
	ping   func(ctx context.Context) error
	close  func() error
}

func newLogger(prefix string, cfg config.Config) *log.Logger {
	l := log.New(prefix)
	l.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)
	if cfg.IsProd() {
		l.SetLevel(log.INFO)
	} else {
		l.SetLevel(log.DEBUG)
	}
	return l
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	started := time.Now()
	logger := newLogger("server", cfg)

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer st.close()

	rl := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if rl.Enabled {
		rdb = config.NewRedisClient(config.LoadRedisConfig())
		if rdb == nil {
			logger.Warn("redis unavailable, rate limiting disabled")
		} else {
			defer rdb.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A nil *queue.Publisher must not reach the ledger as a non-nil interface.
	var pub service.Publisher
	var broker *queue.Publisher
	if cfg.StreamEnabled {
		broker = queue.NewPublisher(cfg.RabbitURL, newLogger("queue", cfg))
		defer broker.Close()
		pub = broker
		if cfg.ConsumeEnabled {
			consumer := queue.NewConsumer(cfg.RabbitURL, cfg.StreamLogDir, newLogger("queue", cfg))
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Errorf("audit consumer stopped: %v", err)
				}
			}()
		}
	}

	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.AccessTTL)
	ledger := service.NewAuditLedger(st.audit, st.tx, pub, newLogger("audit", cfg))

	checks := map[string]service.HealthCheck{
		"database": {Kind: cfg.Store, Check: st.ping},
		"redis":    {Kind: "redis"},
		"broker":   {Kind: "rabbitmq"},
	}
	if rdb != nil {
		checks["redis"] = service.HealthCheck{Kind: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }}
	}
	if broker != nil {
		checks["broker"] = service.HealthCheck{Kind: "rabbitmq", Check: broker.Ping}
	}

	h := router.Handlers{
		Auth:   handler.NewAuthHandler(service.NewAuthService(st.users, st.creds, tokens, utils.VerifyPassword, ledger)),
		Users:  handler.NewUserHandler(service.NewUserService(st.users, ledger)),
		Events: handler.NewEventHandler(service.NewEventService(st.events, ledger)),
		Audit:  handler.NewAuditHandler(ledger),
		Stats: handler.NewStatsHandler(
			service.NewStatsService(st.stats),
			service.NewSystemService(checks, started, logger),
		),
	}
	e := router.New(h, router.Options{
		Gate:        authz.NewGate(tokens),
		RateLimit:   rl,
		Redis:       rdb,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.Store)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func openStores(cfg config.Config, logger *log.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		return memoryStores(cfg, logger)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return mysqlStores(db), nil
}

func mysqlStores(db *sql.DB) *stores {
	return &stores{
		tx:     repository.NewTxManager(db),
		users:  repository.NewUserRepo(db),
		creds:  repository.NewCredentialRepo(db),
		events: repository.NewEventRepo(db),
		audit:  repository.NewAuditRepo(db),
		stats:  repository.NewStatsRepo(db),
		ping:   db.PingContext,
		close:  db.Close,
	}
}

// memoryStores backs a local or demo run. SEED_ADMIN_PHONE and
// SEED_ADMIN_PASSWORD create a SUPER_ADMIN to log in with.
func memoryStores(cfg config.Config, logger *log.Logger) (*stores, error) {
	s := memstore.New()
	if cfg.SeedPhone != "" && cfg.SeedPassword != "" {
		hash, err := utils.HashPassword(cfg.SeedPassword, cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		u := s.AddUser(model.User{Phone: cfg.SeedPhone, Role: model.RoleSuperAdmin, Timezone: "UTC", Language: "ko"})
		if err := s.SetPasswordHash(context.Background(), u.ID, hash); err != nil {
			return nil, err
		}
		logger.Infof("seeded super admin %s (id=%d)", u.Phone, u.ID)
	} else {
		logger.Warn("memory store without SEED_ADMIN_PHONE/SEED_ADMIN_PASSWORD has no admin to log in with")
	}
	return &stores{
		tx:     s,
		users:  s,
		creds:  s,
		events: s.Events(),
		audit:  s,
		stats:  s,
		ping:   func(context.Context) error { return nil },
		close:  func() error { return nil },
	}, nil
}
