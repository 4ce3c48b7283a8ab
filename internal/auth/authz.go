package auth

// OwnerOrAdmin is the ownership predicate for resources addressed by id:
// the caller may touch the resource iff they own it or hold the admin role.
func OwnerOrAdmin(ownerID string, p *Principal) bool {
	if p == nil {
		return false
	}
	return p.ID == ownerID || p.IsAdmin()
}
