// Package memory provides in-memory implementations of the persistence
// ports for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"treeviz-backend/application/ports"
	apperrors "treeviz-backend/pkg/errors"
)

// TreeSessionRepository is a mutex-guarded in-memory session store.
type TreeSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*ports.TreeSession
}

// NewTreeSessionRepository creates a new in-memory session repository
func NewTreeSessionRepository() *TreeSessionRepository {
	return &TreeSessionRepository{
		sessions: make(map[string]*ports.TreeSession),
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

// Create persists a new tree session
func (r *TreeSessionRepository) Create(_ context.Context, session *ports.TreeSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(session.UserID, session.ID)
	if _, exists := r.sessions[key]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("session %s already exists", session.ID))
	}
	r.sessions[key] = copySession(session)
	return nil
}

// GetByID retrieves a session owned by the given user
func (r *TreeSessionRepository) GetByID(_ context.Context, userID, sessionID string) (*ports.TreeSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tree session %s", sessionID))
	}
	return copySession(session), nil
}

// ListByUser retrieves all sessions for a user, newest first
func (r *TreeSessionRepository) ListByUser(_ context.Context, userID string) ([]*ports.TreeSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*ports.TreeSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			sessions = append(sessions, copySession(s))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Update persists changes to an existing session
func (r *TreeSessionRepository) Update(_ context.Context, session *ports.TreeSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(session.UserID, session.ID)
	if _, ok := r.sessions[key]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("tree session %s", session.ID))
	}
	r.sessions[key] = copySession(session)
	return nil
}

// Delete removes a session
func (r *TreeSessionRepository) Delete(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(userID, sessionID)
	if _, ok := r.sessions[key]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("tree session %s", sessionID))
	}
	delete(r.sessions, key)
	return nil
}

func copySession(s *ports.TreeSession) *ports.TreeSession {
	copied := *s
	copied.TreeData = s.TreeData.Clone()
	return &copied
}

// ChatMessageRepository is a mutex-guarded in-memory message log.
type ChatMessageRepository struct {
	mu       sync.RWMutex
	messages []*ports.ChatMessage
}

// NewChatMessageRepository creates a new in-memory message repository
func NewChatMessageRepository() *ChatMessageRepository {
	return &ChatMessageRepository{}
}

// Append persists one message at the end of a session's history
func (r *ChatMessageRepository) Append(_ context.Context, msg *ports.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *msg
	r.messages = append(r.messages, &copied)
	return nil
}

// ListBySession retrieves a session's messages in creation order
func (r *ChatMessageRepository) ListBySession(_ context.Context, userID, sessionID string) ([]*ports.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ports.ChatMessage
	for _, m := range r.messages {
		if m.UserID == userID && m.SessionID == sessionID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ClearSession removes all messages for a session, returning the count removed
func (r *ChatMessageRepository) ClearSession(_ context.Context, userID, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*ports.ChatMessage
	removed := 0
	for _, m := range r.messages {
		if m.UserID == userID && m.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return removed, nil
}
