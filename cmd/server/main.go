package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/reactorkv/reactorkv/internal/server"
	"github.com/reactorkv/reactorkv/pkg/config"
)

func main() {
	cfg := config.LoadServerConfig()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log.Printf("starting reactorkv with config: %+v", cfg)

	srv, err := server.New(cfg.Host, cfg.Port)
	if err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
	srv.SetMaxConns(cfg.MaxConns)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("received %v, shutting down", sig)
		if err := srv.Close(); err != nil {
			log.Printf("error closing server: %v", err)
		}
		<-done
	case err := <-done:
		if err != nil {
			log.Fatalf("server stopped with error: %v", err)
		}
	}

	log.Println("server stopped")
}
