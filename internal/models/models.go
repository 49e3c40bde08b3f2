package models

import "errors"

var (
	// ErrInvalidArgument marks a caller contract violation, such as a path that
	// is not nested under the storage root.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a missing song or a missing storage root.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists marks a store target that is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrIO marks filesystem failures other than "does not exist".
	ErrIO = errors.New("i/o error")
)

// Song is the metadata record of an uploaded audio file.
type Song struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
	Track     int    `json:"track,omitempty"`
	File      string `json:"file"` // Root-relative file store reference
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"createdAt"` // Unix timestamp (seconds)
}

// SongMeta is the user supplied part of a song.
type SongMeta struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Track  int    `json:"track"`
}

type EventType string

const (
	EventTypeSongAdded   EventType = "song.added"
	EventTypeSongRemoved EventType = "song.removed"
)

// LibraryEvent is a change to the song library, broadcast to live clients.
type LibraryEvent struct {
	Seq       int64     `json:"seq"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Song      Song      `json:"song"`
}

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type    ClientMessageType `json:"type"`
	FromSeq int64             `json:"fromSeq,omitempty"`
}

// ServerMessage represents a message to the client.
type ServerMessage struct {
	Type    ServerMessageType `json:"type"`
	LastSeq int64             `json:"lastSeq"`
	Events  []LibraryEvent    `json:"events,omitempty"`
	Reset   bool              `json:"reset,omitempty"` // History was truncated, client should reload the song list
}

type ClientMessageType string

const (
	ClientMessageTypeSync ClientMessageType = "sync"
)

type ServerMessageType string

const (
	ServerMessageTypeHello  ServerMessageType = "hello"
	ServerMessageTypeEvents ServerMessageType = "events"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type PruneResponse struct {
	APIResponse
	Removed int `json:"removed"`
}
