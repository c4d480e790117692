package ports

import (
	"context"
	"encoding/json"
	"time"

	"treeviz-backend/domain/tree"
)

// Message authors recognized by the chat log.
const (
	AuthorUser      = "user"
	AuthorAssistant = "assistant"
)

// TreeSession is one saved diagram with its metadata.
type TreeSession struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	SessionName string     `json:"session_name"`
	TreeType    string     `json:"tree_type"`
	Description string     `json:"description,omitempty"`
	TreeData    tree.Graph `json:"tree_data"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChatMessage is one persisted chat record, user- or assistant-authored.
// Payload carries the assistant's structured turn for assistant messages.
type ChatMessage struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Author    string          `json:"author"`
	Text      string          `json:"text"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Intent    string          `json:"intent,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TreeSessionRepository defines the interface for tree session persistence
// This is a port in hexagonal architecture - the application doesn't know about the implementation
type TreeSessionRepository interface {
	// Create persists a new tree session
	Create(ctx context.Context, session *TreeSession) error

	// GetByID retrieves a session owned by the given user
	GetByID(ctx context.Context, userID, sessionID string) (*TreeSession, error)

	// ListByUser retrieves all sessions for a user, newest first
	ListByUser(ctx context.Context, userID string) ([]*TreeSession, error)

	// Update persists changes to an existing session
	Update(ctx context.Context, session *TreeSession) error

	// Delete removes a session
	Delete(ctx context.Context, userID, sessionID string) error
}

// ChatMessageRepository defines the interface for chat history persistence
type ChatMessageRepository interface {
	// Append persists one message at the end of a session's history
	Append(ctx context.Context, msg *ChatMessage) error

	// ListBySession retrieves a session's messages in creation order
	ListBySession(ctx context.Context, userID, sessionID string) ([]*ChatMessage, error)

	// ClearSession removes all messages for a session, returning the count removed
	ClearSession(ctx context.Context, userID, sessionID string) (int, error)
}
