package model

import "github.com/secmon-lab/kizuna/pkg/domain/types"

// Group is a group membership of the current user
type Group struct {
	ID          types.GroupID   `json:"id" toml:"id" firestore:"id"`
	Title       string          `json:"title" toml:"title" firestore:"title"`
	MemberCount int             `json:"member_count" toml:"member_count" firestore:"member_count"`
	Role        types.GroupRole `json:"role" toml:"role" firestore:"role"`
}

// HasRole reports whether the membership carries a resolved role marker
func (g Group) HasRole() bool {
	return g.Role.IsValid()
}

// Snapshot converts the membership into the read-only form held by the session
func (g Group) Snapshot() *GroupSnapshot {
	return &GroupSnapshot{
		ID:          g.ID,
		Title:       g.Title,
		MemberCount: g.MemberCount,
		IsOwner:     g.Role == types.GroupRoleOwner,
		IsLeader:    g.Role == types.GroupRoleLeader,
	}
}

// GroupSnapshot is the currently selected group
type GroupSnapshot struct {
	ID          types.GroupID `json:"id"`
	Title       string        `json:"title"`
	MemberCount int           `json:"member_count"`
	IsOwner     bool          `json:"is_owner"`
	IsLeader    bool          `json:"is_leader"`
}

func cloneGroups(groups []Group) []Group {
	if groups == nil {
		return nil
	}
	copied := make([]Group, len(groups))
	copy(copied, groups)
	return copied
}
