package models

// Role names a principal's position in the complex. Authorization is an
// explicit capability set per role rather than a numeric ranking, so adding
// a role can never silently reorder privileges.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCommittee Role = "committee"
	RoleResident  Role = "resident"
)

// Capability is a single permitted action.
type Capability string

const (
	CapManageElections Capability = "manage_elections"
	CapCastVote        Capability = "cast_vote"
	CapViewResults     Capability = "view_results"
	CapViewAudit       Capability = "view_audit"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageElections: true,
		CapCastVote:        true,
		CapViewResults:     true,
		CapViewAudit:       true,
	},
	RoleCommittee: {
		CapCastVote:    true,
		CapViewResults: true,
	},
	RoleResident: {
		CapCastVote:    true,
		CapViewResults: true,
	},
}

// Can reports whether the role holds the capability. Unknown roles hold
// nothing.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	return caps[c]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}
