// Package server exposes HTTP handlers for the WebSocket upgrade and health
// checks, including the origin policy for browser clients.
package server

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// WebSocketHandler handles WebSocket upgrade requests. It upgrades the HTTP
// connection and hands it to the hub, which starts the per-connection pumps.
// Authentication happens in-band on the first frame, not at upgrade time.
func (s *ChatServer) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s, r.RemoteAddr)
	if err := s.hub.ServeClient(client); err != nil {
		log.Printf("Rejecting connection from %s: %v", r.RemoteAddr, err)
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}

// checkOrigin admits native clients, which send no Origin header, and checks
// browser origins against the configured allowlist.
func (s *ChatServer) checkOrigin(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		log.Printf("Blocked WebSocket connection with malformed origin: %q", originHeader)
		return false
	}

	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == normalized {
			return true
		}
	}

	log.Printf("Blocked WebSocket connection from disallowed origin: %q", originHeader)
	return false
}

func normalizeOrigins(origins []string) []string {
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			normalized = append(normalized, trimmed)
			continue
		}
		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Printf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}
		normalized = append(normalized, normalizedOrigin)
	}
	return normalized
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
