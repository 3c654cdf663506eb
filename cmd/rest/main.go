package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"echo-assistant-be/internal/bootstrap"
	"echo-assistant-be/internal/config"
	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/server"
	"echo-assistant-be/internal/tracer"
	"echo-assistant-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	shutdownTracer := tracer.InitTracer(container.Logger)
	defer shutdownTracer(context.Background())

	srv := server.New(cfg, container)

	// 4. Background consumer, then an initial knowledge-base build
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Unable to start reindex consumer: %v", err)
	}
	if err := container.PublisherService.PublishReindex(ctx, dto.PublishReindexMessage{Trigger: "startup"}); err != nil {
		log.Printf("Initial reindex not queued: %v", err)
	}

	// 5. Serve until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
