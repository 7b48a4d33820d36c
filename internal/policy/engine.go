package policy

// FIELD GROUPS:
//
//	group                 fields                              revealed to
//	PROXY_DISPLAY_NAME    collective.name                     nobody ("anonymous")
//	PROXY_SLUG            collective.slug                     SELF
//	PERSONAL_IDENTITY     user.id, firstName, lastName, email SELF, COLLECTIVE_ADMIN, HOST_ADMIN
//
// The proxy's public identity (its name and slug, called PUBLIC_IDENTITY in
// the product rules) is split in two because the two fields have different
// rules: the name is never revealed, the slug only to the owner. Callers
// that think in terms of the public identity use PublicIdentity.

// FieldGroup is a set of fields that share one disclosure rule.
// Groups only apply to occurrences tied to an anonymous proxy; identities of
// ordinary members and donors are never redacted.
type FieldGroup int

const (
	// GroupProxyDisplayName is the proxy's name. Always the sentinel.
	GroupProxyDisplayName FieldGroup = iota
	// GroupProxySlug is the proxy's slug, the owner's "this is mine" signal.
	GroupProxySlug
	// GroupPersonalIdentity is the owner's id, first name, last name and email.
	GroupPersonalIdentity
)

// PublicIdentity lists the groups that make up a proxy's public identity.
var PublicIdentity = []FieldGroup{GroupProxyDisplayName, GroupProxySlug}

// CanRevealPublicIdentity reports, per field, whether role may see the
// proxy's stored name and slug.
func CanRevealPublicIdentity(role Role) (name, slug bool) {
	return CanReveal(role, GroupProxyDisplayName), CanReveal(role, GroupProxySlug)
}

func (g FieldGroup) String() string {
	switch g {
	case GroupProxyDisplayName:
		return "PROXY_DISPLAY_NAME"
	case GroupProxySlug:
		return "PROXY_SLUG"
	case GroupPersonalIdentity:
		return "PERSONAL_IDENTITY"
	default:
		return "UNKNOWN"
	}
}

// Field names an individual scalar the engine can rule on.
type Field string

const (
	FieldCollectiveName Field = "collective.name"
	FieldCollectiveSlug Field = "collective.slug"
	// FieldUserID is in PERSONAL_IDENTITY on purpose, next to the name and
	// email: a visible id would let a viewer join an anonymous occurrence
	// with the owner's public ones.
	FieldUserID         Field = "user.id"
	FieldUserFirstName  Field = "user.firstName"
	FieldUserLastName   Field = "user.lastName"
	FieldUserEmail      Field = "user.email"
)

// rule is one row of the disclosure table.
type rule struct {
	never   bool // no role reveals the stored value
	minRole Role
}

// rules is the whole policy. Adding a group or changing a threshold is a
// one-line edit here; nothing else branches on roles.
var rules = map[FieldGroup]rule{
	GroupProxyDisplayName: {never: true},
	GroupProxySlug:        {minRole: RoleSelf},
	GroupPersonalIdentity: {minRole: RoleHostAdmin},
}

var fieldGroups = map[Field]FieldGroup{
	FieldCollectiveName: GroupProxyDisplayName,
	FieldCollectiveSlug: GroupProxySlug,
	FieldUserID:         GroupPersonalIdentity,
	FieldUserFirstName:  GroupPersonalIdentity,
	FieldUserLastName:   GroupPersonalIdentity,
	FieldUserEmail:      GroupPersonalIdentity,
}

// CanReveal reports whether a viewer holding role may see the stored values
// of group. Unknown groups are never revealed.
func CanReveal(role Role, group FieldGroup) bool {
	r, ok := rules[group]
	if !ok || r.never {
		return false
	}
	return role.AtLeast(r.minRole)
}

// GroupOf returns the group a field belongs to.
func GroupOf(f Field) (FieldGroup, bool) {
	g, ok := fieldGroups[f]
	return g, ok
}

// CanRevealField is CanReveal keyed by field. Unknown fields are redacted.
func CanRevealField(role Role, f Field) bool {
	g, ok := GroupOf(f)
	if !ok {
		return false
	}
	return CanReveal(role, g)
}
