package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teamchat/teamchat/internal/server"
)

func main() {
	log.Println("Starting team chat server...")

	config := server.NewConfigFromEnv()

	chat, err := server.NewChatServer(config)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	mux := chat.SetupRoutes()
	httpServer := server.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- chat.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP shutdown incomplete: %v", err)
	}
	if err := chat.Hub().Shutdown(10 * time.Second); err != nil {
		log.Printf("Hub shutdown incomplete: %v", err)
	}
}
