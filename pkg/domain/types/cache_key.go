package types

import (
	"strings"
	"time"
)

// CacheKey identifies a resource snapshot in the cache layer
type CacheKey string

// String returns the string representation of CacheKey
func (k CacheKey) String() string {
	return string(k)
}

// Kind returns the resource kind prefix of the key (e.g. "profile")
func (k CacheKey) Kind() string {
	kind, _, _ := strings.Cut(string(k), ":")
	return kind
}

const (
	periodLayout = "2006-01"
	dateLayout   = "2006-01-02"
)

// Period formats t as the month period used by schedule and count endpoints
func Period(t time.Time) string {
	return t.Format(periodLayout)
}

// Date formats t as the day used by location aggregate endpoints
func Date(t time.Time) string {
	return t.Format(dateLayout)
}

func ProfileKey(userID UserID) CacheKey {
	return CacheKey("profile:" + userID.String())
}

func GroupsKey(userID UserID) CacheKey {
	return CacheKey("groups:" + userID.String())
}

func MembersKey(groupID GroupID) CacheKey {
	return CacheKey("members:" + groupID.String())
}

func SchedulesKey(groupID GroupID, period string) CacheKey {
	return CacheKey("schedules:" + groupID.String() + ":" + period)
}

func PlacesKey(groupID GroupID) CacheKey {
	return CacheKey("places:" + groupID.String())
}

func LocationKey(groupID GroupID, date string) CacheKey {
	return CacheKey("location:" + groupID.String() + ":" + date)
}

func LocationCountsKey(groupID GroupID, period string) CacheKey {
	return CacheKey("location-counts:" + groupID.String() + ":" + period)
}
