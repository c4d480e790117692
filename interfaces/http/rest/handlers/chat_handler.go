package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"treeviz-backend/application/services"
	"treeviz-backend/pkg/auth"
	"treeviz-backend/pkg/utils"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatService *services.ChatService
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// SendMessageRequest represents the request body for one chat turn
type SendMessageRequest struct {
	TreeSessionID    string          `json:"tree_session_id" validate:"required"`
	Message          string          `json:"message" validate:"required,min=1,max=4000"`
	CurrentTreeState json.RawMessage `json:"current_tree_state,omitempty"`
}

// SendMessage handles POST /api/chat/message
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	// Get user context from auth middleware
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.chatService.HandleMessage(
		r.Context(),
		userCtx.UserID,
		req.TreeSessionID,
		req.Message,
		req.CurrentTreeState,
	)
	if err != nil {
		h.logger.Error("Chat turn failed",
			zap.String("userID", userCtx.UserID),
			zap.String("sessionID", req.TreeSessionID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":            result.Message.ID,
		"reply":         result.Turn.Reply,
		"intent":        result.Turn.Intent,
		"highlights":    result.Turn.Highlights,
		"operations":    result.Turn.Operations,
		"explanation":   result.Turn.Explanation,
		"apply_results": result.Turn.ApplyResults,
		"tree_data":     result.Turn.TreeData,
		"created_at":    result.Message.CreatedAt,
	})
}

// GetHistory handles GET /api/chat/history/{sessionID}
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	messages, err := h.chatService.History(r.Context(), userCtx.UserID, sessionID)
	if err != nil {
		h.logger.Error("Failed to load chat history",
			zap.String("sessionID", sessionID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

// ClearHistory handles DELETE /api/chat/history/{sessionID}
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	removed, err := h.chatService.ClearHistory(r.Context(), userCtx.UserID, sessionID)
	if err != nil {
		h.logger.Error("Failed to clear chat history",
			zap.String("sessionID", sessionID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"deleted":    removed,
	})
}

// Helper methods

func (h *ChatHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ChatHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
