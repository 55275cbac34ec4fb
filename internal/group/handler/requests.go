package handler

import (
	"time"

	"cabshare/internal/catalog"
	"cabshare/internal/group/models"
)

type identityPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type createGroupRequest struct {
	TrainNumber  string          `json:"train_number"`
	TravelDate   string          `json:"travel_date"`
	Direction    string          `json:"direction"`
	Capacity     int             `json:"capacity"`
	MeetingPoint string          `json:"meeting_point"`
	Creator      identityPayload `json:"creator"`
}

type joinGroupRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type groupResponse struct {
	ID            string          `json:"id"`
	TrainNumber   string          `json:"train_number"`
	TravelDate    string          `json:"travel_date"`
	Direction     string          `json:"direction"`
	DepartureTime string          `json:"departure_time"`
	Capacity      int             `json:"capacity"`
	MemberCount   int             `json:"member_count"`
	OpenSlots     int             `json:"open_slots"`
	MeetingPoint  string          `json:"meeting_point,omitempty"`
	Status        string          `json:"status"`
	CreatedBy     identityPayload `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

type memberResponse struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"group_id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	JoinedAt time.Time `json:"joined_at"`
}

type trainResponse struct {
	TrainNumber        string `json:"train_number"`
	TrainName          string `json:"train_name"`
	DepartureTime      string `json:"departure_time"`
	DestinationStation string `json:"destination_station"`
}

func toGroupResponse(g *models.Group, now time.Time) groupResponse {
	open := g.Capacity - g.MemberCount
	if open < 0 {
		open = 0
	}
	return groupResponse{
		ID:            g.ID.String(),
		TrainNumber:   g.TrainNumber,
		TravelDate:    g.TravelDate.String(),
		Direction:     g.Direction.String(),
		DepartureTime: g.DepartureTime,
		Capacity:      g.Capacity,
		MemberCount:   g.MemberCount,
		OpenSlots:     open,
		MeetingPoint:  g.MeetingPoint,
		Status:        string(g.StatusAt(now)),
		CreatedBy:     identityPayload{Name: g.CreatedBy.Name, Phone: g.CreatedBy.Phone},
		CreatedAt:     g.CreatedAt,
	}
}

func toGroupResponses(groups []*models.Group, now time.Time) []groupResponse {
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g, now)
	}
	return out
}

func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		ID:       m.ID.String(),
		GroupID:  m.GroupID.String(),
		Name:     m.Identity.Name,
		Phone:    m.Identity.Phone,
		JoinedAt: m.JoinedAt,
	}
}

func toMemberResponses(members []*models.Member) []memberResponse {
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = toMemberResponse(m)
	}
	return out
}

func toTrainResponse(t *catalog.Train) trainResponse {
	return trainResponse{
		TrainNumber:        t.TrainNumber,
		TrainName:          t.TrainName,
		DepartureTime:      t.DepartureTime,
		DestinationStation: t.DestinationStation,
	}
}
