// Command seed loads the demo catalog into the configured MySQL database.
// It is safe to run repeatedly.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-seat-reservation/internal/config"
	"github.com/iliyamo/showtime-seat-reservation/internal/database"
	"github.com/iliyamo/showtime-seat-reservation/internal/logger"
	"github.com/iliyamo/showtime-seat-reservation/internal/repository"
	"github.com/iliyamo/showtime-seat-reservation/internal/seed"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	if cfg.Storage != config.StorageMySQL {
		log.Fatalf("seed only targets mysql storage, got STORAGE=%s", cfg.Storage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}

	res, err := seed.Demo(ctx, repository.NewCatalogRepo(db), repository.NewUserRepo(db), time.Now())
	if err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.WithFields(logrus.Fields{
		"venue_id":  res.VenueID,
		"hall_id":   res.HallID,
		"show_id":   res.ShowtimeID,
		"user_id":   res.UserID,
		"seats":     len(res.Seats),
		"scheduled": res.Scheduled,
	}).Info("seed data created")
}
