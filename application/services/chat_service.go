package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"treeviz-backend/application/assistant"
	"treeviz-backend/application/ports"
	"treeviz-backend/domain/tree"
	apperrors "treeviz-backend/pkg/errors"
	"treeviz-backend/pkg/observability"
)

// TurnResult is the outcome of one chat turn: the persisted assistant
// message plus the structured turn it carries.
type TurnResult struct {
	Message *ports.ChatMessage
	Turn    *assistant.Turn
}

// ChatService orchestrates one chat turn end to end: persist the user
// message, call the model, parse and (if needed) infer operations, mutate
// the tree, persist the result, and return the assistant's turn. Model
// failures never fail the turn; they degrade to fallback replies.
type ChatService struct {
	sessionRepo ports.TreeSessionRepository
	messageRepo ports.ChatMessageRepository
	llm         ports.LLMClient
	llmModel    string
	llmTimeout  time.Duration
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	sessionRepo ports.TreeSessionRepository,
	messageRepo ports.ChatMessageRepository,
	llm ports.LLMClient,
	llmModel string,
	llmTimeout time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		llm:         llm,
		llmModel:    llmModel,
		llmTimeout:  llmTimeout,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleMessage runs one full turn. clientTree is the optional snapshot the
// client sent with the message; when structurally valid it takes precedence
// over the stored tree. The returned error covers persistence failures only.
func (s *ChatService) HandleMessage(
	ctx context.Context,
	userID string,
	sessionID string,
	message string,
	clientTree json.RawMessage,
) (*TurnResult, error) {
	started := time.Now()

	userMsg := &ports.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Author:    ports.AuthorUser,
		Text:      message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messageRepo.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	session, err := s.sessionRepo.GetByID(ctx, userID, sessionID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load tree session: %w", err)
		}
		// A missing session degrades the turn instead of failing it.
		s.logger.Warn("Tree session not found for chat turn",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		turn := sessionNotFoundTurn()
		result, persistErr := s.persistAssistantTurn(ctx, userID, sessionID, turn)
		s.recordTurn(ctx, turn, started, persistErr)
		return result, persistErr
	}

	graph := s.effectiveGraph(session, clientTree)

	turn, fallback := s.callModel(ctx, message, graph)

	// Inference only recovers operations from genuine model replies; a
	// fallback turn stays a no-op.
	if !fallback && len(turn.Operations) == 0 {
		turn.Operations = assistant.InferOperations(turn)
	}

	results := s.mutate(&graph, turn.Operations)
	if len(results) > 0 {
		turn.ApplyResults = results
	}
	for _, r := range results {
		if !r.Success && r.Reason == tree.ReasonBothChildren {
			label := tree.NormalizeLabel(r.Operation.Value)
			turn.Reply = fmt.Sprintf("I could not insert %q: the parent already has both left and right children.", label)
			break
		}
	}
	turn.TreeData = &graph

	session.TreeData = graph
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist tree state: %w", err)
	}

	result, persistErr := s.persistAssistantTurn(ctx, userID, sessionID, turn)
	s.recordTurn(ctx, turn, started, persistErr)
	return result, persistErr
}

// History returns the session's messages in creation order.
func (s *ChatService) History(ctx context.Context, userID, sessionID string) ([]*ports.ChatMessage, error) {
	return s.messageRepo.ListBySession(ctx, userID, sessionID)
}

// ClearHistory removes all messages for the session, returning the count.
func (s *ChatService) ClearHistory(ctx context.Context, userID, sessionID string) (int, error) {
	return s.messageRepo.ClearSession(ctx, userID, sessionID)
}

// effectiveGraph picks the client snapshot when it is structurally usable,
// otherwise the stored tree.
func (s *ChatService) effectiveGraph(session *ports.TreeSession, clientTree json.RawMessage) tree.Graph {
	if tree.IsStructurallyValid(clientTree) {
		var g tree.Graph
		if err := json.Unmarshal(clientTree, &g); err == nil {
			if g.Nodes == nil {
				g.Nodes = []tree.Node{}
			}
			if g.Edges == nil {
				g.Edges = []tree.Edge{}
			}
			return g
		}
		s.logger.Debug("Client tree snapshot rejected, using stored tree")
	}
	return session.TreeData.Clone()
}

// callModel runs the LLM round and parses its output, degrading to the
// fallback turns on any failure. The second return is true when the turn is
// a fallback rather than a genuine model reply.
func (s *ChatService) callModel(ctx context.Context, message string, graph tree.Graph) (*assistant.Turn, bool) {
	if s.llm == nil {
		return assistant.FallbackUnavailable(message), true
	}

	payload, err := assistant.BuildUserPayload(message, graph)
	if err != nil {
		s.logger.Error("Failed to build model payload", zap.Error(err))
		return assistant.FallbackUnavailable(message), true
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	llmStart := time.Now()
	raw, err := s.llm.Generate(llmCtx, assistant.SystemInstruction, payload)
	s.recordLLMLatency(ctx, time.Since(llmStart), err)
	if err != nil {
		s.logger.Warn("Model call failed", zap.Error(err))
		return assistant.FallbackUnavailable(message), true
	}

	turn, err := assistant.Extract(raw)
	if err != nil {
		s.logger.Warn("Model response unparseable", zap.Error(err))
		return assistant.FallbackParseError(message), true
	}
	return turn, false
}

// mutate applies the operations with panic containment: an unexpected panic
// becomes a single failure result instead of aborting the turn.
func (s *ChatService) mutate(graph *tree.Graph, operations []tree.Operation) (results []tree.ApplyResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tree mutation panicked", zap.Any("panic", r))
			results = []tree.ApplyResult{
				{Success: false, Reason: fmt.Sprintf("mutation failed: %v", r)},
			}
		}
	}()
	return tree.Apply(graph, operations)
}

func (s *ChatService) persistAssistantTurn(
	ctx context.Context,
	userID string,
	sessionID string,
	turn *assistant.Turn,
) (*TurnResult, error) {
	payload, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize assistant turn: %w", err)
	}

	assistantMsg := &ports.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Author:    ports.AuthorAssistant,
		Text:      turn.Reply,
		Payload:   payload,
		Intent:    turn.Intent,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messageRepo.Append(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	return &TurnResult{Message: assistantMsg, Turn: turn}, nil
}

func (s *ChatService) recordTurn(ctx context.Context, turn *assistant.Turn, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	applied := 0
	for _, r := range turn.ApplyResults {
		if r.Success {
			applied++
		}
	}
	s.metrics.RecordTurn(ctx, turn.Intent, time.Since(started), applied, err)
}

func (s *ChatService) recordLLMLatency(ctx context.Context, latency time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordLLMLatency(ctx, s.llmModel, latency, err)
}

func sessionNotFoundTurn() *assistant.Turn {
	return &assistant.Turn{
		Reply:      "Tree session not found.",
		Intent:     assistant.IntentAnalysis,
		Highlights: []string{},
		Operations: []tree.Operation{},
		ApplyResults: []tree.ApplyResult{
			{Success: false, Reason: "Tree session not found"},
		},
	}
}
