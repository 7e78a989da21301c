// Package server defines the wire message envelope shared by client and hub
// logic, plus helpers for naming stored files.
package server

import (
	"path/filepath"
	"strings"
)

// Message kinds exchanged over the wire. The "type" field of every JSON frame
// holds one of these values.
const (
	MsgAuth         = "auth"
	MsgChat         = "chat"
	MsgFile         = "file"
	MsgFileRequest  = "file_request"
	MsgHeartbeat    = "heartbeat"
	MsgSystem       = "system"
	MsgUsersList    = "users_list"
	MsgFileShared   = "file_shared"
	MsgFileData     = "file_data"
	MsgHeartbeatAck = "heartbeat_ack"
)

// Message is the JSON envelope for every frame in both directions. Only the
// fields relevant to the Type of a given frame are populated; the rest are
// omitted from the encoding.
type Message struct {
	Type      string   `json:"type"`
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
	From      string   `json:"from,omitempty"`
	Message   string   `json:"message,omitempty"`
	Filename  string   `json:"filename,omitempty"`
	Data      string   `json:"data,omitempty"`
	FileID    string   `json:"file_id,omitempty"`
	Users     []string `json:"users,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

func systemMessage(text string) Message {
	return Message{Type: MsgSystem, Message: text}
}

func chatMessage(from, text string) Message {
	return Message{Type: MsgChat, From: from, Message: text}
}

func usersListMessage(users []string) Message {
	return Message{Type: MsgUsersList, Users: users}
}

func fileSharedMessage(from, filename, fileID string) Message {
	return Message{Type: MsgFileShared, From: from, Filename: filename, FileID: fileID}
}

func fileDataMessage(filename, data string) Message {
	return Message{Type: MsgFileData, Filename: filename, Data: data}
}

func heartbeatAckMessage(timestamp int64) Message {
	return Message{Type: MsgHeartbeatAck, Timestamp: timestamp}
}

// sanitizeFilename reduces an uploaded filename to its base name, stripping
// any directory components. It returns false for names that carry no usable
// base name at all.
func sanitizeFilename(name string) (string, bool) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", false
	}
	return base, true
}

// validFileID reports whether a client-supplied file id is safe to use as a
// flat storage key. Ids carrying path separators or parent-directory tokens
// are rejected before any filesystem lookup.
func validFileID(id string) bool {
	if id == "" {
		return false
	}
	if strings.ContainsAny(id, "/\\") {
		return false
	}
	return !strings.Contains(id, "..")
}

// displayFilename recovers the original base filename from a stored file id
// by stripping the leading "<unix-seconds>_" prefix. Ids without that prefix
// are returned verbatim.
func displayFilename(fileID string) string {
	idx := strings.Index(fileID, "_")
	if idx <= 0 || idx == len(fileID)-1 {
		return fileID
	}
	for _, r := range fileID[:idx] {
		if r < '0' || r > '9' {
			return fileID
		}
	}
	return fileID[idx+1:]
}
