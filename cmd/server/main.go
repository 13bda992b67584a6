package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/s-hiraoku/termsession/internal/config"
	"github.com/s-hiraoku/termsession/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	storePath := flag.String("store", "", "Session store path (overrides STORE_PATH)")
	workspace := flag.String("workspace", "", "Workspace id (overrides WORKSPACE_ID)")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	if *workspace != "" {
		cfg.Store.Workspace = *workspace
	}
	if *dev {
		cfg.Logging.Development = true
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
