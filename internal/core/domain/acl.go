package domain

// GranteeType classifies the principal a permission grant applies to.
type GranteeType int

const (
	// GranteeGroup is a directory group; its identifier is indexed directly.
	GranteeGroup GranteeType = iota

	// GranteeUser is an individual user; expanded to group memberships.
	GranteeUser

	// GranteeEveryone is the sentinel "all authenticated users" principal.
	GranteeEveryone
)

// EveryoneGroupID is the well-known sentinel group identifier written to
// the index when an item is granted to everyone. Query-side security
// trimming always includes this identifier for authenticated callers.
const EveryoneGroupID = "all-authenticated-users"

// Grant is one permission entry on an item, direct or inherited.
type Grant struct {
	// Type classifies the grantee.
	Type GranteeType

	// GranteeID is the group or user identifier. Empty for
	// GranteeEveryone.
	GranteeID string
}
