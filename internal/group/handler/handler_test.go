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
	"github.com/stretchr/testify/suite"

	"cabshare/internal/catalog"
	"cabshare/internal/feed"
	"cabshare/internal/group/service"
	"cabshare/internal/group/store"
	"cabshare/pkg/platform/keyedlock"
	"cabshare/pkg/requestcontext"
	"cabshare/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	now    time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.NewService(catalog.NewInMemory(catalog.DefaultSeed()...))
	svc := service.New(store.NewInMemory(), cat, feed.Discard{}, logger, nil, service.CapacityBounds{Min: 2, Max: 6}, keyedlock.New())

	s.now = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	s.router = chi.NewRouter()
	New(svc, cat, logger).Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req = req.WithContext(requestcontext.WithTime(context.Background(), s.now))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) createBody() map[string]any {
	return map[string]any{
		"train_number":  "12640",
		"travel_date":   "2026-09-14",
		"direction":     "to_station",
		"capacity":      3,
		"meeting_point": "Main Gate",
		"creator":       map[string]string{"name": "Asha", "phone": "9876543210"},
	}
}

func (s *HandlerSuite) createGroup() groupResponse {
	rec := s.do(http.MethodPost, "/groups", s.createBody())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp groupResponse
	testutil.DecodeJSON(s.T(), rec, &resp)
	return resp
}

func (s *HandlerSuite) TestCreateGroup() {
	resp := s.createGroup()
	s.Equal("12640", resp.TrainNumber)
	s.Equal("07:50", resp.DepartureTime)
	s.Equal(1, resp.MemberCount)
	s.Equal(2, resp.OpenSlots)
	s.Equal("active", resp.Status)
	s.Equal("Asha", resp.CreatedBy.Name)
}

func (s *HandlerSuite) TestCreateGroupMalformedBody() {
	rec := s.do(http.MethodPost, "/groups", "not an object")
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestCreateGroupCapacityOutOfBounds() {
	body := s.createBody()
	body["capacity"] = 9
	rec := s.do(http.MethodPost, "/groups", body)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	var errResp struct {
		Error string `json:"error"`
	}
	testutil.DecodeJSON(s.T(), rec, &errResp)
	s.Equal("invalid_capacity", errResp.Error)
}

func (s *HandlerSuite) TestJoinGroupLifecycle() {
	group := s.createGroup()

	rec := s.do(http.MethodPost, "/groups/"+group.ID+"/members",
		map[string]string{"name": "Bala", "phone": "9000000001"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var member memberResponse
	testutil.DecodeJSON(s.T(), rec, &member)
	s.Equal("Bala", member.Name)

	// Duplicate booking on the same departure.
	rec = s.do(http.MethodPost, "/groups/"+group.ID+"/members",
		map[string]string{"name": "Bala", "phone": "9000000001"})
	s.Equal(http.StatusConflict, rec.Code)

	// Third seat fills the group; a fourth join conflicts.
	rec = s.do(http.MethodPost, "/groups/"+group.ID+"/members",
		map[string]string{"name": "Chitra", "phone": "9000000002"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/groups/"+group.ID+"/members",
		map[string]string{"name": "Devi", "phone": "9000000003"})
	s.Equal(http.StatusConflict, rec.Code)

	var errResp struct {
		Error string `json:"error"`
	}
	testutil.DecodeJSON(s.T(), rec, &errResp)
	s.Equal("group_full", errResp.Error)

	// Leaving frees the seat.
	rec = s.do(http.MethodDelete, "/groups/"+group.ID+"/members/"+member.ID, nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/groups/"+group.ID+"/members",
		map[string]string{"name": "Devi", "phone": "9000000003"})
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *HandlerSuite) TestJoinUnknownGroup() {
	rec := s.do(http.MethodPost, "/groups/5f0c23ea-7d1c-4a3f-9b1e-2d3c4b5a6978/members",
		map[string]string{"name": "Bala", "phone": "9000000001"})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestInvalidGroupID() {
	rec := s.do(http.MethodGet, "/groups/not-a-uuid", nil)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestGetGroupAndMembers() {
	group := s.createGroup()

	rec := s.do(http.MethodGet, "/groups/"+group.ID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got groupResponse
	testutil.DecodeJSON(s.T(), rec, &got)
	s.Equal(group.ID, got.ID)

	rec = s.do(http.MethodGet, "/groups/"+group.ID+"/members", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var members []memberResponse
	testutil.DecodeJSON(s.T(), rec, &members)
	s.Require().Len(members, 1)
	s.Equal("9876543210", members[0].Phone)
}

func (s *HandlerSuite) TestListGroupsWithDepartureFilter() {
	s.createGroup()

	rec := s.do(http.MethodGet, "/groups?train_number=12640&travel_date=2026-09-14&direction=to_station", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var groups []groupResponse
	testutil.DecodeJSON(s.T(), rec, &groups)
	s.Len(groups, 1)

	rec = s.do(http.MethodGet, "/groups?train_number=12640&travel_date=2026-09-14&direction=to_college", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	groups = nil
	testutil.DecodeJSON(s.T(), rec, &groups)
	s.Empty(groups)
}

func (s *HandlerSuite) TestGetTrain() {
	rec := s.do(http.MethodGet, "/trains/12640", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var train trainResponse
	testutil.DecodeJSON(s.T(), rec, &train)
	s.Equal("Brindavan Express", train.TrainName)

	rec = s.do(http.MethodGet, "/trains/99999", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}
