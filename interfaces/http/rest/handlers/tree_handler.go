package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"treeviz-backend/application/services"
	"treeviz-backend/domain/tree"
	"treeviz-backend/pkg/auth"
	apperrors "treeviz-backend/pkg/errors"
	"treeviz-backend/pkg/utils"
)

// TreeHandler handles tree session HTTP requests
type TreeHandler struct {
	treeService *services.TreeSessionService
	logger      *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService *services.TreeSessionService, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// CreateSessionRequest represents the request body for creating a session
type CreateSessionRequest struct {
	SessionName string      `json:"session_name" validate:"required,min=1,max=200"`
	TreeType    string      `json:"tree_type,omitempty" validate:"omitempty,oneof=binary bst avl heap"`
	Description string      `json:"description,omitempty" validate:"omitempty,max=1000"`
	TreeData    *tree.Graph `json:"tree_data,omitempty"`
}

// UpdateSessionRequest represents the request body for updating a session
type UpdateSessionRequest struct {
	SessionName string      `json:"session_name,omitempty" validate:"omitempty,min=1,max=200"`
	Description string      `json:"description,omitempty" validate:"omitempty,max=1000"`
	TreeData    *tree.Graph `json:"tree_data,omitempty"`
}

// CreateSession handles POST /api/tree/sessions
func (h *TreeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
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

	session, err := h.treeService.CreateSession(
		r.Context(),
		userCtx.UserID,
		req.SessionName,
		req.TreeType,
		req.Description,
		req.TreeData,
	)
	if err != nil {
		h.logger.Error("Failed to create tree session",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, statusFromError(err), "Failed to create session")
		return
	}

	h.respondJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /api/tree/sessions
func (h *TreeHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessions, err := h.treeService.ListSessions(r.Context(), userCtx.UserID)
	if err != nil {
		h.logger.Error("Failed to list tree sessions",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/tree/sessions/{sessionID}
func (h *TreeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.treeService.GetSession(r.Context(), userCtx.UserID, sessionID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.logger.Error("Failed to get tree session",
				zap.String("sessionID", sessionID),
				zap.Error(err),
			)
		}
		h.respondError(w, statusFromError(err), "Failed to get session")
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// UpdateSession handles PUT /api/tree/sessions/{sessionID}
func (h *TreeHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.treeService.UpdateSession(
		r.Context(),
		userCtx.UserID,
		sessionID,
		req.SessionName,
		req.Description,
		req.TreeData,
	)
	if err != nil {
		h.respondError(w, statusFromError(err), "Failed to update session")
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /api/tree/sessions/{sessionID}
func (h *TreeHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.treeService.DeleteSession(r.Context(), userCtx.UserID, sessionID); err != nil {
		h.respondError(w, statusFromError(err), "Failed to delete session")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"deleted":    true,
	})
}

// Helper methods

func (h *TreeHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *TreeHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// statusFromError maps application errors to HTTP status codes
func statusFromError(err error) int {
	switch {
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsType(err, apperrors.ErrorTypeConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
