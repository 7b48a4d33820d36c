package model

import "time"

// MemberRole is the role a Membership grants.
type MemberRole string

const (
	MemberRoleAdmin     MemberRole = "ADMIN"
	MemberRoleBacker    MemberRole = "BACKER"
	MemberRoleHostAdmin MemberRole = "HOST_ADMIN"
	MemberRoleMember    MemberRole = "MEMBER"
	MemberRoleHost      MemberRole = "HOST" // the host collective itself, as member of a hosted collective
)

// Valid reports whether r is one of the known roles.
func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleAdmin, MemberRoleBacker, MemberRoleHostAdmin, MemberRoleMember, MemberRoleHost:
		return true
	}
	return false
}

// Membership grants a user a role over a collective.
//
// MemberCollectiveID names the profile the membership is displayed under:
// an anonymous proxy when the user backed the collective anonymously, or a
// host collective for the host's own membership. Empty means the user's
// own profile.
//
// Memberships are never transitive: being ADMIN of a host does not create
// rows on the collectives it hosts. That authority is derived at read time.
type Membership struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	CollectiveID       string     `json:"collectiveId"`
	Role               MemberRole `json:"role"`
	MemberCollectiveID string     `json:"memberCollectiveId,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}
