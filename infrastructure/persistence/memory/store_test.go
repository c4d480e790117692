package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeviz-backend/application/ports"
	"treeviz-backend/domain/tree"
	apperrors "treeviz-backend/pkg/errors"
)

func newSession(id, userID string) *ports.TreeSession {
	now := time.Now().UTC()
	return &ports.TreeSession{
		ID:          id,
		UserID:      userID,
		SessionName: "session " + id,
		TreeType:    "binary",
		TreeData:    tree.NewGraph(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestTreeSessionRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeSessionRepository()

	// Create
	require.NoError(t, repo.Create(ctx, newSession("s1", "u1")))

	// Duplicate create conflicts
	err := repo.Create(ctx, newSession("s1", "u1"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	// Get
	got, err := repo.GetByID(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "session s1", got.SessionName)

	// Wrong owner is not found
	_, err = repo.GetByID(ctx, "u2", "s1")
	assert.True(t, apperrors.IsNotFound(err))

	// Update
	got.SessionName = "renamed"
	require.NoError(t, repo.Update(ctx, got))
	updated, err := repo.GetByID(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.SessionName)

	// Delete
	require.NoError(t, repo.Delete(ctx, "u1", "s1"))
	_, err = repo.GetByID(ctx, "u1", "s1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTreeSessionRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeSessionRepository()
	require.NoError(t, repo.Create(ctx, newSession("s1", "u1")))

	first, err := repo.GetByID(ctx, "u1", "s1")
	require.NoError(t, err)
	first.TreeData.Nodes = append(first.TreeData.Nodes, tree.Node{ID: "x", Label: "X"})

	second, err := repo.GetByID(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, second.TreeData.Nodes, "mutating a returned session must not affect the store")
}

func TestTreeSessionRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeSessionRepository()

	older := newSession("s1", "u1")
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newSession("s2", "u1")

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, newSession("s3", "other-user")))

	sessions, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, "s1", sessions[1].ID)
}

func TestChatMessageRepository_AppendListClear(t *testing.T) {
	ctx := context.Background()
	repo := NewChatMessageRepository()

	for i, author := range []string{ports.AuthorUser, ports.AuthorAssistant} {
		require.NoError(t, repo.Append(ctx, &ports.ChatMessage{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			SessionID: "s1",
			Author:    author,
			Text:      "msg",
			CreatedAt: time.Now().UTC(),
		}))
	}
	require.NoError(t, repo.Append(ctx, &ports.ChatMessage{
		ID: "other", UserID: "u1", SessionID: "s2", Author: ports.AuthorUser,
	}))

	messages, err := repo.ListBySession(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, ports.AuthorUser, messages[0].Author)
	assert.Equal(t, ports.AuthorAssistant, messages[1].Author)

	removed, err := repo.ClearSession(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := repo.ListBySession(ctx, "u1", "s2")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
