package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	commentservice "cabshare/internal/comment/service"
	commentstore "cabshare/internal/comment/store"
	"cabshare/internal/feed"
	groupmodels "cabshare/internal/group/models"
	groupstore "cabshare/internal/group/store"
	"cabshare/pkg/domain"
	"cabshare/pkg/platform/keyedlock"
	"cabshare/pkg/requestcontext"
	"cabshare/pkg/testutil"
)

func setup(t *testing.T) (chi.Router, domain.GroupID) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	groups := groupstore.NewInMemory()
	svc := commentservice.New(commentstore.NewInMemory(groups), groups, feed.Discard{}, logger, keyedlock.New())

	now := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	identity, err := domain.NewIdentity("Asha", "9876543210")
	require.NoError(t, err)
	date, err := domain.ParseDate("2026-09-14")
	require.NoError(t, err)
	group := &groupmodels.Group{
		ID:            domain.NewGroupID(),
		TrainNumber:   "12640",
		TravelDate:    date,
		Direction:     domain.DirectionToStation,
		DepartureTime: "07:50",
		Capacity:      4,
		CreatedBy:     identity,
		CreatedAt:     now,
	}
	creator := &groupmodels.Member{
		ID: domain.NewMemberID(), GroupID: group.ID, Identity: identity, JoinedAt: now,
	}
	require.NoError(t, groups.CreateGroup(ctx, group, creator))

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r, group.ID
}

func TestPostAndListComments(t *testing.T) {
	router, groupID := setup(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost,
		"/groups/"+groupID.String()+"/comments",
		map[string]string{"name": "Asha", "phone": "9876543210", "text": "gate by 7"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var posted commentResponse
	testutil.DecodeJSON(t, rec, &posted)
	require.Equal(t, "gate by 7", posted.Text)
	require.Equal(t, "Asha", posted.Author)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodGet,
		"/groups/"+groupID.String()+"/comments", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []commentResponse
	testutil.DecodeJSON(t, rec, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, posted.ID, listed[0].ID)
}

func TestPostCommentRejections(t *testing.T) {
	router, groupID := setup(t)

	// Blank text.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost,
		"/groups/"+groupID.String()+"/comments",
		map[string]string{"name": "Asha", "phone": "9876543210", "text": "  "}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown group.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost,
		"/groups/"+domain.NewGroupID().String()+"/comments",
		map[string]string{"name": "Asha", "phone": "9876543210", "text": "hello"}))
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed id.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodGet, "/groups/nope/comments", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
