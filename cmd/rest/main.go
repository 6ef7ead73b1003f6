package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"claudebuddy-be/internal/bootstrap"
	"claudebuddy-be/internal/config"
	"claudebuddy-be/internal/server"
	"claudebuddy-be/internal/service"
	"claudebuddy-be/internal/tracer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Telemetry
	shutdownTracer := tracer.InitTracer(cfg.Telemetry, service.AppVersion)

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, cfg)

	// 4. Start Background Services
	if err := container.LifecycleService.Consume(ctx); err != nil {
		log.Fatalf("Unable to start lifecycle consumer: %v", err)
	}

	// 5. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	container.Close(shutdownCtx)
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}
