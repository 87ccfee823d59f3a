package model

import (
	"time"

	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

// Member is a member of a group
type Member struct {
	UserID          types.UserID    `json:"user_id" firestore:"user_id"`
	Name            string          `json:"name" firestore:"name"`
	ProfileImageURL string          `json:"profile_image_url,omitempty" firestore:"profile_image_url"`
	Role            types.GroupRole `json:"role" firestore:"role"`
}

// Schedule is a scheduled event in a group
type Schedule struct {
	ID       string        `json:"id" firestore:"id"`
	GroupID  types.GroupID `json:"group_id" firestore:"group_id"`
	Title    string        `json:"title" firestore:"title"`
	StartsAt time.Time     `json:"starts_at" firestore:"starts_at"`
	EndsAt   time.Time     `json:"ends_at" firestore:"ends_at"`
}

// Place is a registered place of a group
type Place struct {
	ID        string        `json:"id" firestore:"id"`
	GroupID   types.GroupID `json:"group_id" firestore:"group_id"`
	Name      string        `json:"name" firestore:"name"`
	Latitude  float64       `json:"latitude" firestore:"latitude"`
	Longitude float64       `json:"longitude" firestore:"longitude"`
	Radius    float64       `json:"radius" firestore:"radius"`
}

// LocationPoint is one aggregated location of a member
type LocationPoint struct {
	UserID     types.UserID `json:"user_id" firestore:"user_id"`
	Latitude   float64      `json:"latitude" firestore:"latitude"`
	Longitude  float64      `json:"longitude" firestore:"longitude"`
	RecordedAt time.Time    `json:"recorded_at" firestore:"recorded_at"`
}

// LocationAggregate is the location history of a group for one day
type LocationAggregate struct {
	GroupID types.GroupID   `json:"group_id" firestore:"group_id"`
	Date    string          `json:"date" firestore:"date"`
	Points  []LocationPoint `json:"points" firestore:"points"`
}

// LocationCount is the number of location records for one day
type LocationCount struct {
	Date  string `json:"date" firestore:"date"`
	Count int    `json:"count" firestore:"count"`
}
