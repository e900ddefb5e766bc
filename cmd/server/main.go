package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/trovoapp/family-qr/internal/config"
	"github.com/trovoapp/family-qr/internal/database"
	"github.com/trovoapp/family-qr/internal/handler"
	"github.com/trovoapp/family-qr/internal/middleware"
	"github.com/trovoapp/family-qr/internal/queue"
	"github.com/trovoapp/family-qr/internal/repository"
	"github.com/trovoapp/family-qr/internal/router"
	"github.com/trovoapp/family-qr/internal/service"
	"github.com/trovoapp/family-qr/internal/store"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	docs := store.NewMySQL(db)
	if err := docs.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	repo := repository.NewQrRepo(docs)
	svc := service.NewQrService(repo, cfg.APISecret)
	h := handler.NewQrHandler(svc)

	e := echo.New()
	// Rate limiting degrades to a pass-through when Redis is unreachable.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), config.NewRedisClient()))
	router.RegisterRoutes(e)
	router.RegisterQr(e, h)

	// Background consumer that turns published scan events into audit logs.
	go func() {
		if err := queue.StartScanConsumer(); err != nil {
			log.Printf("scan-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
