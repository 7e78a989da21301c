// Package server manages individual client connections, driving the
// authentication gate, message dispatch, and the read/write pumps for each
// WebSocket.
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one WebSocket connection in the chat system. Until
// authentication succeeds the connection has no username; afterwards it is
// the live session for that user.
type Client struct {
	conn          *websocket.Conn
	send          chan []byte
	srv           *ChatServer
	id            string
	addr          string
	username      string
	authenticated bool
	closed        bool // guarded by the hub mutex
}

// NewClient creates a Client for a freshly upgraded connection. The send
// channel is buffered so broadcasts are not blocked by a slow peer.
func NewClient(conn *websocket.Conn, srv *ChatServer, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(srv.cfg.MaxMessageSize)
	}
	return &Client{
		conn: conn,
		send: make(chan []byte, 256),
		srv:  srv,
		id:   uuid.NewString()[:8],
		addr: addr,
	}
}

// setupReadConnection configures read deadlines and the pong handler for the
// WebSocket connection.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// logReadError logs the read failure that ended the connection, keeping
// expected disconnects quiet.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Message from %s exceeded maximum size of %d bytes", c.addr, c.srv.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Connection %s (%s) disconnected: %v", c.id, c.addr, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Connection %s (%s) closed: %v", c.id, c.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// reply queues a message for this client only.
func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding %s reply for %s: %v", msg.Type, c.addr, err)
		return
	}
	if !c.srv.hub.safeSend(c, payload) {
		log.Printf("Dropping %s reply to closing connection %s", msg.Type, c.id)
	}
}

// authenticate reads the first frame and drives the Authenticating state.
// The frame must be a well-formed auth message naming a known user with the
// right password and no live session. Any failure sends a system reason and
// returns false; there is no retry on the same connection.
func (c *Client) authenticate() bool {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		c.logReadError(err)
		return false
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != MsgAuth || msg.Username == "" || msg.Password == "" {
		log.Printf("Invalid authentication message on connection %s from %s", c.id, c.addr)
		c.reply(systemMessage("Invalid authentication message."))
		return false
	}

	if err := c.srv.creds.Verify(msg.Username, msg.Password); err != nil {
		log.Printf("Authentication failed for %q on connection %s", msg.Username, c.id)
		c.reply(systemMessage("Authentication failed."))
		return false
	}

	c.username = msg.Username
	if err := c.srv.hub.Register(c); err != nil {
		log.Printf("Rejected duplicate login for %q on connection %s", msg.Username, c.id)
		c.reply(systemMessage(fmt.Sprintf("User %s is already logged in.", msg.Username)))
		return false
	}
	c.authenticated = true

	c.srv.broadcast(systemMessage(fmt.Sprintf("%s joined the chat.", c.username)))
	c.reply(usersListMessage(c.srv.hub.Users()))
	return true
}

// allowMessage consults the rate limiter and, when the user is over the
// limit, warns the sender. Only chat and file messages pass through here;
// heartbeats and downloads bypass the limiter so liveness and retrieval do
// not starve under chat load.
func (c *Client) allowMessage() bool {
	if c.srv.limiter.Allow(c.username, time.Now()) {
		return true
	}
	log.Printf("Rate limit exceeded for %q (%d messages per %s); rejecting message",
		c.username, c.srv.cfg.RateLimit.MaxMessages, c.srv.cfg.RateLimit.Window)
	c.reply(systemMessage("You are sending messages too quickly. Please wait."))
	return false
}

// handleMessage dispatches one inbound frame while the connection is Active.
func (c *Client) handleMessage(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Malformed message on connection %s from %s: %v", c.id, c.addr, err)
		c.reply(systemMessage("Malformed message."))
		return
	}

	switch msg.Type {
	case MsgChat:
		if !c.allowMessage() {
			return
		}
		c.srv.broadcast(chatMessage(c.username, msg.Message))
	case MsgFile:
		if !c.allowMessage() {
			return
		}
		c.handleFileUpload(msg)
	case MsgFileRequest:
		c.handleFileRequest(msg.FileID)
	case MsgHeartbeat:
		c.reply(heartbeatAckMessage(time.Now().Unix()))
	case MsgAuth, MsgSystem, MsgUsersList, MsgFileShared, MsgFileData, MsgHeartbeatAck:
		c.reply(systemMessage("Unsupported message type."))
	default:
		c.reply(systemMessage("Unsupported message type."))
	}
}

// handleFileUpload validates, persists, and announces an uploaded file.
func (c *Client) handleFileUpload(msg Message) {
	data, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		c.reply(systemMessage("Invalid file data."))
		return
	}
	if int64(len(data)) > c.srv.cfg.MaxFileSize {
		c.reply(systemMessage(fmt.Sprintf("File too large. Maximum size is %d bytes.", c.srv.cfg.MaxFileSize)))
		return
	}

	filename, ok := sanitizeFilename(msg.Filename)
	if !ok {
		c.reply(systemMessage("Invalid filename."))
		return
	}

	fileID := fmt.Sprintf("%d_%s", time.Now().Unix(), filename)
	if err := c.srv.files.Put(fileID, data); err != nil {
		log.Printf("Error storing upload from %q: %v", c.username, err)
		c.reply(systemMessage("Failed to store file."))
		return
	}

	log.Printf("User %q shared file %q (%d bytes) as %s", c.username, filename, len(data), fileID)
	c.srv.broadcast(fileSharedMessage(c.username, filename, fileID))
}

// handleFileRequest returns a stored file to the requester only. The id is
// validated before any filesystem lookup.
func (c *Client) handleFileRequest(fileID string) {
	if !validFileID(fileID) {
		log.Printf("Rejected file request with invalid id %q from %q", fileID, c.username)
		c.reply(systemMessage("Invalid file id."))
		return
	}

	data, err := c.srv.files.Get(fileID)
	if errors.Is(err, ErrNotFound) {
		c.reply(systemMessage("File not found."))
		return
	}
	if err != nil {
		log.Printf("Error reading file %q for %q: %v", fileID, c.username, err)
		c.reply(systemMessage("Failed to read file."))
		return
	}

	c.reply(fileDataMessage(displayFilename(fileID), base64.StdEncoding.EncodeToString(data)))
}

// cleanup runs on every exit from readPump. It unconditionally removes the
// session and rate record for this connection's user and notifies the room.
func (c *Client) cleanup() {
	c.srv.hub.Drop(c)
	if c.authenticated {
		c.srv.limiter.Forget(c.username)
		c.srv.broadcast(systemMessage(fmt.Sprintf("%s left the chat.", c.username)))
		log.Printf("User %q left the chat", c.username)
	}
}

func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic on connection %s from %s: %v", c.id, c.addr, r)
		}
		c.cleanup()
	}()

	c.setupReadConnection()

	if !c.authenticate() {
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			break
		}
		c.handleMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing. The connection is closed by the pump's defer,
// after queued messages have been flushed.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleOutgoing(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}

// handleOutgoing writes one queued message, or the close frame once the send
// channel has been drained.
func (c *Client) handleOutgoing(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Printf("Error writing message to %s: %v", c.addr, err)
		return false
	}
	return true
}

// writeCloseMessage sends a close frame to the client.
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
	}
	return false
}

// handlePing sends a ping message to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing ping message to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
