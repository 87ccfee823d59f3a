package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

// UserProfile is the identity of the signed-in user plus the groups derived from it.
// OwnedGroups and JoinedGroups are always recomputed from Groups by SetGroups.
type UserProfile struct {
	ID              types.UserID `json:"id" toml:"id" firestore:"id"`
	Name            string       `json:"name" toml:"name" firestore:"name"`
	Email           string       `json:"email,omitempty" toml:"email" firestore:"email"`
	Phone           string       `json:"phone,omitempty" toml:"phone" firestore:"phone"`
	ProfileImageURL string       `json:"profile_image_url,omitempty" toml:"profile_image_url" firestore:"profile_image_url"`

	Groups       []Group `json:"groups,omitempty" toml:"groups" firestore:"groups"`
	OwnedGroups  []Group `json:"owned_groups,omitempty" toml:"owned_groups" firestore:"owned_groups"`
	JoinedGroups []Group `json:"joined_groups,omitempty" toml:"joined_groups" firestore:"joined_groups"`
}

// Validate checks if the UserProfile is valid
func (x *UserProfile) Validate() error {
	if x == nil {
		return goerr.New("user profile is nil")
	}
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user profile")
	}
	return nil
}

// Clone returns a deep copy of the profile
func (x *UserProfile) Clone() *UserProfile {
	if x == nil {
		return nil
	}
	copied := *x
	copied.Groups = cloneGroups(x.Groups)
	copied.OwnedGroups = cloneGroups(x.OwnedGroups)
	copied.JoinedGroups = cloneGroups(x.JoinedGroups)
	return &copied
}

// SetGroups replaces the group list and recomputes OwnedGroups and JoinedGroups.
// Entries without a valid role are excluded and returned so the caller can report them.
func (x *UserProfile) SetGroups(groups []Group) (dropped []Group) {
	valid := make([]Group, 0, len(groups))
	for _, g := range groups {
		if !g.HasRole() {
			dropped = append(dropped, g)
			continue
		}
		valid = append(valid, g)
	}

	x.Groups = valid
	x.OwnedGroups = make([]Group, 0, len(valid))
	x.JoinedGroups = make([]Group, 0, len(valid))
	for _, g := range valid {
		if g.Role.IsOwner() {
			x.OwnedGroups = append(x.OwnedGroups, g)
		} else {
			x.JoinedGroups = append(x.JoinedGroups, g)
		}
	}

	return dropped
}

// FindGroup returns the group with the given ID from Groups
func (x *UserProfile) FindGroup(id types.GroupID) (Group, bool) {
	if x == nil {
		return Group{}, false
	}
	for _, g := range x.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// UserPatch is a partial update of a UserProfile. Nil fields are left untouched.
type UserPatch struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.ProfileImageURL == nil
}

// ApplyTo returns a copy of user with the patch merged in
func (p UserPatch) ApplyTo(user *UserProfile) *UserProfile {
	merged := user.Clone()
	if merged == nil {
		return nil
	}
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Email != nil {
		merged.Email = *p.Email
	}
	if p.Phone != nil {
		merged.Phone = *p.Phone
	}
	if p.ProfileImageURL != nil {
		merged.ProfileImageURL = *p.ProfileImageURL
	}
	return merged
}

// Credentials are the id/secret pair entered by the user
type Credentials struct {
	ID     string
	Secret string `masq:"secret"`
}

// Validate checks that both fields are present
func (c Credentials) Validate() error {
	if c.ID == "" {
		return goerr.New("login ID is required")
	}
	if c.Secret == "" {
		return goerr.New("password is required")
	}
	return nil
}
