package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-seat-reservation/internal/config"
	"github.com/iliyamo/showtime-seat-reservation/internal/database"
	"github.com/iliyamo/showtime-seat-reservation/internal/handler"
	"github.com/iliyamo/showtime-seat-reservation/internal/logger"
	"github.com/iliyamo/showtime-seat-reservation/internal/middleware"
	"github.com/iliyamo/showtime-seat-reservation/internal/queue"
	"github.com/iliyamo/showtime-seat-reservation/internal/repository"
	"github.com/iliyamo/showtime-seat-reservation/internal/reservation"
	"github.com/iliyamo/showtime-seat-reservation/internal/router"
	"github.com/iliyamo/showtime-seat-reservation/internal/seed"
	"github.com/iliyamo/showtime-seat-reservation/internal/service"
	"github.com/iliyamo/showtime-seat-reservation/internal/worker"
)

type backend struct {
	catalog reservation.Catalog
	users   reservation.Users
	ledger  reservation.Ledger
	close   func()
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("storage init failed")
	}
	defer store.close()

	engine := reservation.NewEngine(store.catalog, store.users, store.ledger, cfg.HoldDuration, reservation.WithLogger(log))

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting, caching and periodic sweep disabled")
	} else {
		defer rdb.Close()
	}

	var publisher handler.BookingPublisher
	if cfg.RabbitMQURL != "" {
		publisher = service.NewBookingPublisher(cfg.RabbitMQURL, log)
		consumer := queue.NewBookingConsumer(cfg.RabbitMQURL, queue.DefaultLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	}

	if cfg.SweepSchedule != "" && rdb != nil {
		runner, err := worker.NewRunner(worker.RedisOpt(config.RedisOptions()), cfg.SweepSchedule, engine, log)
		if err != nil {
			log.WithError(err).Fatal("periodic sweeper init failed")
		}
		if err := runner.Start(); err != nil {
			log.WithError(err).Fatal("periodic sweeper start failed")
		}
		defer runner.Shutdown()
	}

	e := router.New(log, cfg.JWTSecret)
	router.RegisterRoutes(e)
	router.RegisterReservations(e,
		handler.NewReservationHandler(engine, publisher, log),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
	)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.Storage}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}

// openBackend connects the configured storage.  The memory backend is
// seeded with the demo catalog so the service is usable out of the box.
func openBackend(ctx context.Context, cfg config.Config, log *logrus.Logger) (*backend, error) {
	if cfg.Storage == config.StorageMemory {
		mem := repository.NewMemoryStore()
		res, err := seed.Demo(ctx, mem, mem, time.Now())
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"show_id": res.ShowtimeID, "user_id": res.UserID}).Info("in-memory store seeded")
		return &backend{catalog: mem, users: mem, ledger: mem, close: func() {}}, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &backend{
		catalog: repository.NewCatalogRepo(db),
		users:   repository.NewUserRepo(db),
		ledger:  repository.NewLedger(db),
		close:   func() { _ = db.Close() },
	}, nil
}
