// Package server coordinates session registration, message broadcast, and
// connection cleanup for the chat system via the Hub type.
package server

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"
)

// ErrUserOnline is returned by Register when the username already has a live
// session. The existing session is left untouched.
var ErrUserOnline = errors.New("user already has an active session")

// ErrShuttingDown is returned by ServeClient when the hub no longer accepts
// connections.
var ErrShuttingDown = errors.New("hub is shutting down")

// Hub tracks every open connection and the registry of authenticated
// sessions, and fans broadcast messages out to all sessions. All shared
// state is protected by a single mutex; per-recipient sends happen outside
// the lock via the clients' buffered send channels.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool   // every open connection, authenticated or not
	sessions map[string]*Client // username -> live session
	wg       sync.WaitGroup
	closing  bool
}

// NewHub creates an empty Hub ready to manage connections.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		sessions: make(map[string]*Client),
	}
}

// ServeClient admits a freshly upgraded connection and starts its read and
// write pumps. The pumps are tracked so Shutdown can wait for them.
func (h *Hub) ServeClient(client *Client) error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return ErrShuttingDown
	}
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mu.Unlock()
	log.Printf("Connection %s accepted from %s. Total connections: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
	return nil
}

// Register binds the client's username to its connection. At most one session
// may exist per username; a second login attempt is rejected and the first
// session is unaffected.
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, online := h.sessions[client.username]; online {
		return ErrUserOnline
	}
	h.sessions[client.username] = client
	log.Printf("User %q registered on connection %s. Online users: %d", client.username, client.id, len(h.sessions))
	return nil
}

// Drop removes the client from the hub, unbinding its session if it had one,
// and closes its send channel. Dropping a client that is already gone is a
// no-op, so cleanup paths may call it unconditionally.
func (h *Hub) Drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if client.username != "" && h.sessions[client.username] == client {
		delete(h.sessions, client.username)
	}
	client.closed = true
	clientCount := len(h.clients)
	h.mu.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	log.Printf("Connection %s from %s dropped. Total connections: %d", client.id, client.addr, clientCount)
}

// Users returns the usernames of all live sessions in sorted order.
func (h *Hub) Users() []string {
	h.mu.RLock()
	users := make([]string, 0, len(h.sessions))
	for username := range h.sessions {
		users = append(users, username)
	}
	h.mu.RUnlock()

	sort.Strings(users)
	return users
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Broadcast sends the serialized message to every session registered at call
// time. Delivery is best effort: a recipient whose send buffer is full or
// whose connection just closed is evicted without affecting the others.
func (h *Hub) Broadcast(payload []byte) {
	sessions := h.sessionSnapshot()

	var failed []*Client
	for _, client := range sessions {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// sessionSnapshot returns the current sessions without holding the lock
// across any send.
func (h *Hub) sessionSnapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]*Client, 0, len(h.sessions))
	for _, client := range h.sessions {
		sessions = append(sessions, client)
	}
	return sessions
}

// removeFailedClients evicts clients that failed to receive a broadcast and
// closes their send channels.
func (h *Hub) removeFailedClients(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	var channelsToClose []chan []byte
	for _, client := range failed {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			if client.username != "" && h.sessions[client.username] == client {
				delete(h.sessions, client.username)
			}
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			log.Printf("Connection %s from %s removed due to full send buffer", client.id, client.addr)
		}
	}
	h.mu.Unlock()

	// Close channels after releasing the lock.
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// Shutdown stops accepting connections, closes all live ones, and waits for
// the pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing connection %s from %s: %v", client.id, client.addr, err)
			}
		}
	}
	log.Printf("Closed %d client connections", len(clients))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
