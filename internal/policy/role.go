// Package policy decides who may see which identity fields of an anonymous
// donor.
//
// Two pieces live here:
//
//   - The Resolver turns (viewer, subject collective, anonymous owner) into a
//     Role. It is the only part that performs I/O (membership lookups).
//   - The engine (CanReveal) is a pure table lookup from (Role, FieldGroup) to
//     reveal/redact.
//
// The redact package combines both while walking a response graph.
package policy

// Role is the privilege of a viewer relative to a subject collective.
//
// The constants are declared in privilege order, so plain integer comparison
// gives the lattice PUBLIC < OTHER < HOST_ADMIN < COLLECTIVE_ADMIN < SELF.
type Role int

const (
	RolePublic Role = iota
	RoleOther
	RoleHostAdmin
	RoleCollectiveAdmin
	RoleSelf
)

var roleNames = [...]string{
	RolePublic:          "PUBLIC",
	RoleOther:           "OTHER",
	RoleHostAdmin:       "HOST_ADMIN",
	RoleCollectiveAdmin: "COLLECTIVE_ADMIN",
	RoleSelf:            "SELF",
}

func (r Role) String() string {
	if r < RolePublic || r > RoleSelf {
		return "UNKNOWN"
	}
	return roleNames[r]
}

// AtLeast reports whether r meets the threshold min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// MarshalText lets roles appear by name in JSON and logs.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
