package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/database"
	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
	"github.com/iliyamo/restaurant-seating/internal/policy"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
	"github.com/iliyamo/restaurant-seating/internal/router"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	hours, err := policy.Load(cfg.HoursFile)
	if err != nil {
		log.Fatalf("load opening hours: %v", err)
	}

	// Redis is optional: without it locks stay in-process and the cache and
	// rate limiter are disabled.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}

	opts := []service.Option{
		service.WithLocker(newLocker(cfg.LockBackend, rdb)),
		service.WithPolicy(enginePolicy(cfg.Engine)),
		service.WithSafetyStrategy(cfg.Engine.SafetyStrategy),
	}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL)
		defer pub.Close()
		opts = append(opts, service.WithNotifier(pub))
		if cfg.RunConsumer {
			go func() {
				if err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, cfg.NotificationLogDir); err != nil {
					log.Printf("notify-consumer: stopped: %v", err)
				}
			}()
		}
	} else {
		log.Printf("RABBITMQ_URL not set; notifications are dropped")
	}

	engine := service.New(repository.NewStore(db), hours, opts...)
	defer engine.Close()

	// Offer tables freed while the process was down before taking traffic.
	if _, err := engine.DispatchFreeTables(ctx); err != nil {
		log.Printf("startup dispatch: %v", err)
	}
	go service.NewReconciler(engine, cfg.Engine.ReconcileInterval).Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s %d %s", v.Method, v.URI, v.Status, v.Latency.Round(time.Millisecond))
			return nil
		},
	}))

	router.Register(e, handler.NewSeatingHandler(engine), router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newLocker(backend string, rdb *redis.Client) service.Locker {
	if backend == "redis" {
		if rdb == nil {
			log.Fatal("LOCK_BACKEND=redis but redis is unavailable")
		}
		return lock.NewRedis(rdb, "seating:lock", 10*time.Second)
	}
	return lock.NewLocal()
}

func enginePolicy(c config.EngineConfig) service.Policy {
	p := service.DefaultPolicy()
	p.NoShowGrace = c.NoShowGrace
	p.NotifyTimeout = c.NotifyTimeout
	p.EarlyArrival = c.EarlyArrival
	p.MaxSeated = c.MaxSeated
	p.ReminderLead = c.ReminderLead
	return p
}
