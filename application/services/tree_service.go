package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"treeviz-backend/application/ports"
	"treeviz-backend/domain/tree"
	"treeviz-backend/pkg/errors"
)

// Tree types a session may declare.
var validTreeTypes = map[string]struct{}{
	"binary": {},
	"bst":    {},
	"avl":    {},
	"heap":   {},
}

// TreeSessionService manages the lifecycle of saved tree sessions.
type TreeSessionService struct {
	sessionRepo ports.TreeSessionRepository
	messageRepo ports.ChatMessageRepository
	logger      *zap.Logger
}

// NewTreeSessionService creates a new tree session service
func NewTreeSessionService(
	sessionRepo ports.TreeSessionRepository,
	messageRepo ports.ChatMessageRepository,
	logger *zap.Logger,
) *TreeSessionService {
	return &TreeSessionService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// CreateSession creates a new tree session. An empty treeType defaults to
// binary; an empty initial graph is stored when treeData is nil.
func (s *TreeSessionService) CreateSession(
	ctx context.Context,
	userID string,
	sessionName string,
	treeType string,
	description string,
	treeData *tree.Graph,
) (*ports.TreeSession, error) {
	if sessionName == "" {
		return nil, errors.NewValidationError("session name is required")
	}
	if treeType == "" {
		treeType = "binary"
	}
	if _, ok := validTreeTypes[treeType]; !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid tree type: %s", treeType))
	}

	graph := tree.NewGraph()
	if treeData != nil {
		graph = treeData.Clone()
	}

	now := time.Now().UTC()
	session := &ports.TreeSession{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionName: sessionName,
		TreeType:    treeType,
		Description: description,
		TreeData:    graph,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create tree session",
			zap.String("userID", userID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Tree session created",
		zap.String("sessionID", session.ID),
		zap.String("treeType", treeType))
	return session, nil
}

// GetSession retrieves one session owned by the user.
func (s *TreeSessionService) GetSession(ctx context.Context, userID, sessionID string) (*ports.TreeSession, error) {
	return s.sessionRepo.GetByID(ctx, userID, sessionID)
}

// ListSessions retrieves all of the user's sessions.
func (s *TreeSessionService) ListSessions(ctx context.Context, userID string) ([]*ports.TreeSession, error) {
	return s.sessionRepo.ListByUser(ctx, userID)
}

// UpdateSession updates a session's metadata and tree. Nil/empty fields are
// left unchanged.
func (s *TreeSessionService) UpdateSession(
	ctx context.Context,
	userID string,
	sessionID string,
	sessionName string,
	description string,
	treeData *tree.Graph,
) (*ports.TreeSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if sessionName != "" {
		session.SessionName = sessionName
	}
	if description != "" {
		session.Description = description
	}
	if treeData != nil {
		session.TreeData = treeData.Clone()
	}
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session and its chat history.
func (s *TreeSessionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.sessionRepo.GetByID(ctx, userID, sessionID); err != nil {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, userID, sessionID); err != nil {
		return err
	}

	// History cleanup failure does not undo the deletion.
	if removed, err := s.messageRepo.ClearSession(ctx, userID, sessionID); err != nil {
		s.logger.Warn("Failed to clear chat history for deleted session",
			zap.String("sessionID", sessionID),
			zap.Error(err))
	} else if removed > 0 {
		s.logger.Debug("Cleared chat history",
			zap.String("sessionID", sessionID),
			zap.Int("removed", removed))
	}
	return nil
}
