package main

import (
	"context"
	"log"

	"studybot/internal/bootstrap"
	"studybot/internal/config"
	"studybot/internal/server"
	"studybot/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	// 4. Start Background Executor
	go func() {
		log.Println("Background: Starting Job Executor...")
		if err := container.Executor.Run(context.Background()); err != nil {
			log.Printf("Background Executor Error: %v", err)
		}
	}()

	// 5. Initialize Webhook Server
	srv := server.New(cfg, container.Router, container.Logger)

	// 6. Run Server
	log.Fatal(srv.Run())
}
