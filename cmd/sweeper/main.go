package main

import (
	"context"
	"log"
	"os"
	"time"

	"studybot/internal/bootstrap"
	"studybot/internal/config"
	"studybot/pkg/database"
)

// The sweeper is a run-once binary meant for an external daily scheduler
// (cron, Railway cron, systemd timer).
func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	runErr := container.Sweeper.Run(ctx)
	cancel()

	// Close before exiting so the NATS connection drains and the log
	// buffers flush even on the failure path.
	container.Close()

	if runErr != nil {
		log.Printf("Sweep finished with errors: %v", runErr)
		os.Exit(1)
	}
	log.Println("Sweep finished successfully.")
}
