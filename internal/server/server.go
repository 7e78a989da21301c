// Package server constructs and starts the chat service with helpers that
// apply sensible production defaults.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// ChatServer bundles the shared collaborators of the connection handlers:
// the session hub, credential store, rate limiter, and file store. Each
// instance owns its state, so tests can build isolated servers.
type ChatServer struct {
	cfg     Config
	hub     *Hub
	creds   *CredentialStore
	limiter *RateLimiter
	files   *FileStore
}

// NewChatServer validates the configuration and wires up the chat service.
func NewChatServer(cfg *Config) (*ChatServer, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	sanitized := sanitizeConfig(*cfg)

	creds, err := NewCredentialStore(sanitized.Users)
	if err != nil {
		return nil, err
	}
	files, err := NewFileStore(sanitized.FileDir)
	if err != nil {
		return nil, err
	}

	return &ChatServer{
		cfg:     sanitized,
		hub:     NewHub(),
		creds:   creds,
		limiter: NewRateLimiter(sanitized.RateLimit.MaxMessages, sanitized.RateLimit.Window),
		files:   files,
	}, nil
}

// Hub returns the session hub for shutdown coordination.
func (s *ChatServer) Hub() *Hub {
	return s.hub
}

// broadcast serializes a message and fans it out to every live session.
func (s *ChatServer) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding %s broadcast: %v", msg.Type, err)
		return
	}
	s.hub.Broadcast(payload)
}

// CreateServer creates and configures an HTTP server with the specified port
// and handler. It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// When the chat server is configured with a certificate pair, the listener
// terminates TLS so clients connect over wss.
func (s *ChatServer) StartServer(server *http.Server) error {
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		log.Printf("Server listening on %s (TLS)", server.Addr)
		return server.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	}
	log.Printf("Server listening on %s", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting
// active connections. It waits for active connections to close or until the
// timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	log.Println("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return err
	}

	log.Println("HTTP server shutdown completed")
	return nil
}
