// Package handler exposes the group coordinator over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cabshare/internal/catalog"
	"cabshare/internal/group/models"
	"cabshare/internal/group/service"
	"cabshare/internal/transport/http/shared"
	"cabshare/pkg/domain"
	dErrors "cabshare/pkg/domain-errors"
	"cabshare/pkg/requestcontext"
)

// GroupService is the coordinator surface the handler needs.
type GroupService interface {
	CreateGroup(ctx context.Context, req service.CreateGroupRequest) (*models.Group, error)
	JoinGroup(ctx context.Context, groupID domain.GroupID, name, phone string) (*models.Member, error)
	LeaveGroup(ctx context.Context, groupID domain.GroupID, memberID domain.MemberID) error
	ListGroups(ctx context.Context, params service.ListParams) ([]*models.Group, error)
	GetGroup(ctx context.Context, groupID domain.GroupID) (*models.Group, error)
	ListMembers(ctx context.Context, groupID domain.GroupID) ([]*models.Member, error)
}

// CatalogService resolves train metadata for the lookup endpoint.
type CatalogService interface {
	FindTrain(ctx context.Context, trainNumber string) (*catalog.Train, error)
}

// Handler handles group and train endpoints.
type Handler struct {
	logger  *slog.Logger
	groups  GroupService
	catalog CatalogService
}

// New creates a group Handler.
func New(groups GroupService, catalog CatalogService, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, groups: groups, catalog: catalog}
}

// Register registers the group routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/groups", h.handleCreateGroup)
	r.Get("/groups", h.handleListGroups)
	r.Get("/groups/{groupID}", h.handleGetGroup)
	r.Get("/groups/{groupID}/members", h.handleListMembers)
	r.Post("/groups/{groupID}/members", h.handleJoinGroup)
	r.Delete("/groups/{groupID}/members/{memberID}", h.handleLeaveGroup)
	r.Get("/trains/{trainNumber}", h.handleGetTrain)
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}

	group, err := h.groups.CreateGroup(ctx, service.CreateGroupRequest{
		TrainNumber:  req.TrainNumber,
		TravelDate:   req.TravelDate,
		Direction:    req.Direction,
		Capacity:     req.Capacity,
		MeetingPoint: req.MeetingPoint,
		CreatorName:  req.Creator.Name,
		CreatorPhone: req.Creator.Phone,
	})
	if err != nil {
		h.writeError(ctx, w, "create group", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toGroupResponse(group, requestcontext.Now(ctx)))
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	groups, err := h.groups.ListGroups(ctx, service.ListParams{
		TrainNumber: q.Get("train_number"),
		TravelDate:  q.Get("travel_date"),
		Direction:   q.Get("direction"),
	})
	if err != nil {
		h.writeError(ctx, w, "list groups", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toGroupResponses(groups, requestcontext.Now(ctx)))
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	group, err := h.groups.GetGroup(ctx, groupID)
	if err != nil {
		h.writeError(ctx, w, "get group", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toGroupResponse(group, requestcontext.Now(ctx)))
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	members, err := h.groups.ListMembers(ctx, groupID)
	if err != nil {
		h.writeError(ctx, w, "list members", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMemberResponses(members))
}

func (h *Handler) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	var req joinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}

	member, err := h.groups.JoinGroup(ctx, groupID, req.Name, req.Phone)
	if err != nil {
		h.writeError(ctx, w, "join group", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *Handler) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	memberID, err := domain.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid member id"))
		return
	}

	if err := h.groups.LeaveGroup(ctx, groupID, memberID); err != nil {
		h.writeError(ctx, w, "leave group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetTrain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	train, err := h.catalog.FindTrain(ctx, chi.URLParam(r, "trainNumber"))
	if err != nil {
		h.writeError(ctx, w, "find train", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTrainResponse(train))
}

func (h *Handler) groupID(w http.ResponseWriter, r *http.Request) (domain.GroupID, bool) {
	groupID, err := domain.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid group id"))
		return domain.GroupID{}, false
	}
	return groupID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeStoreUnavailable {
		h.logger.ErrorContext(ctx, op+" failed",
			slog.String("request_id", requestcontext.RequestID(ctx)),
			slog.Any("error", err))
	}
	shared.WriteError(w, err)
}
