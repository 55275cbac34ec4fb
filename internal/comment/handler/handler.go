// Package handler exposes the comment log over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cabshare/internal/comment/models"
	"cabshare/internal/transport/http/shared"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
)

// Service is the comment surface the handler needs.
type Service interface {
	Post(ctx context.Context, groupID domain.GroupID, name, phone, text string) (*models.Comment, error)
	List(ctx context.Context, groupID domain.GroupID) ([]*models.Comment, error)
}

// Handler handles comment endpoints.
type Handler struct {
	logger   *slog.Logger
	comments Service
}

// New creates a comment Handler.
func New(comments Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, comments: comments}
}

// Register registers the comment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/groups/{groupID}/comments", h.handlePostComment)
	r.Get("/groups/{groupID}/comments", h.handleListComments)
}

type postCommentRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Author    string    `json:"author"`
	Phone     string    `json:"phone"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID.String(),
		GroupID:   c.GroupID.String(),
		Author:    c.Author.Name,
		Phone:     c.Author.Phone,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) handlePostComment(w http.ResponseWriter, r *http.Request) {
	groupID, err := domain.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return
	}

	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}

	comment, err := h.comments.Post(r.Context(), groupID, req.Name, req.Phone, req.Text)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	groupID, err := domain.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return
	}

	comments, err := h.comments.List(r.Context(), groupID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]commentResponse, len(comments))
	for i, c := range comments {
		out[i] = toCommentResponse(c)
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
