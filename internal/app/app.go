package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/seatflow/internal/config"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/payment"
	"github.com/kirinyoku/seatflow/internal/postgres"
	"github.com/kirinyoku/seatflow/internal/redis"
	postgresrepo "github.com/kirinyoku/seatflow/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/seatflow/internal/repository/redis"
	"github.com/kirinyoku/seatflow/internal/scheduler"
	"github.com/kirinyoku/seatflow/internal/service"
	"github.com/kirinyoku/seatflow/internal/service/checkout"
	"github.com/kirinyoku/seatflow/internal/service/hold"
	"github.com/kirinyoku/seatflow/internal/service/query"
	httpgin "github.com/kirinyoku/seatflow/internal/transport/http/gin"
	"github.com/kirinyoku/seatflow/internal/uow"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	scheduler  *scheduler.Scheduler
	closers    []io.Closer
	pool       *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	// Initialize dependencies
	pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), AppName: "seatflow"})
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.pool = pool

	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	a.closers = append(a.closers, rdb)

	// Initialize repositories
	store := postgresrepo.NewStore(pool)
	cache := redisrepo.New(rdb)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 24*time.Hour, time.Minute)

	var limiter hold.RateLimiter
	if cfg.RateLimit.PerMinute > 0 {
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "holds", cfg.RateLimit.PerMinute, time.Minute)
	}

	publisher, err := a.publisher(cache, rdb)
	if err != nil {
		return err
	}

	// Initialize services
	services := service.NewServices(service.Deps{
		Store:     store,
		Cache:     cache,
		Limiter:   limiter,
		Publisher: publisher,
		Gateway:   a.gateway(),
		Logger:    a.logger,
	}, service.Config{
		UoW: uow.Config{MaxAttempts: cfg.Checkout.TxMaxAttempts},
		Hold: hold.Config{
			TTL:            cfg.Checkout.HoldTTL,
			SweepBatchSize: cfg.Checkout.SweepBatchSize,
		},
		Checkout: checkout.Config{
			PaymentTimeout: cfg.Payment.Timeout,
			Currency:       cfg.Payment.Currency,
		},
		Query: query.Config{},
	})

	a.scheduler, err = scheduler.New(services.Holds, a.logger.With(slog.String("component", "scheduler")), scheduler.Config{
		Interval: cfg.Checkout.SweepInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, a.logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// publisher fans events out to the cache invalidator, the Redis change
// channel and the configured broker.
func (a *App) publisher(cache *redisrepo.Cache, rdb *goredis.Client) (events.Publisher, error) {
	multi := events.Multi{
		redisrepo.NewInvalidator(cache),
		redisrepo.NewSessionsPubSub(rdb),
	}

	switch a.cfg.Events.Broker {
	case config.BrokerKafka:
		p, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: a.cfg.Events.KafkaBrokers,
			Topic:   a.cfg.Events.KafkaTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize kafka publisher: %w", err)
		}
		a.closers = append(a.closers, p)
		multi = append(multi, p)
	case config.BrokerAMQP:
		p, err := events.NewAMQPPublisher(a.cfg.Events.AMQPURL, a.cfg.Events.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize amqp publisher: %w", err)
		}
		a.closers = append(a.closers, p)
		multi = append(multi, p)
	}

	return multi, nil
}

func (a *App) gateway() payment.Gateway {
	if a.cfg.Payment.StripeSecretKey == "" {
		a.logger.Warn("STRIPE_SECRET_KEY not set, using the fake payment gateway")
		return payment.NewFake()
	}
	return payment.NewStripe(a.cfg.Payment.StripeSecretKey, a.cfg.Payment.Currency)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	if err := a.scheduler.Start(gCtx); err != nil {
		return err
	}

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return errors.Join(
			a.httpServer.Shutdown(ctx),
			a.scheduler.Shutdown(),
		)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
	a.closers = nil

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
