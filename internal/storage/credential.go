package storage

// Tier identifies which authority is presented to the row store on a call.
// The store enforces row-level security against the presented credential,
// so the tier is the actual enforcement boundary for end-user data access.
type Tier int

const (
	// TierInvalid is the zero value; the adapter rejects it.
	TierInvalid Tier = iota
	// TierAnonymous presents the public key alone. Insert-only, used for
	// self-registration.
	TierAnonymous
	// TierUser forwards the caller's own validated token, so the store's
	// row-level security scopes the call to the caller's rows.
	TierUser
	// TierService presents the privileged key and bypasses row-level
	// security. Reserved for login's credential lookup and cross-user
	// administrative operations.
	TierService
)

func (t Tier) String() string {
	switch t {
	case TierAnonymous:
		return "anonymous"
	case TierUser:
		return "user"
	case TierService:
		return "service"
	default:
		return "invalid"
	}
}

// Credential is a tier plus, for TierUser, the caller's raw token. It can
// only be built through the three constructors; the zero value fails every
// store call.
type Credential struct {
	tier  Tier
	token string
}

// Anonymous returns the public, insert-only credential.
func Anonymous() Credential {
	return Credential{tier: TierAnonymous}
}

// ForwardedUser returns a credential that presents the caller's own token.
func ForwardedUser(token string) Credential {
	return Credential{tier: TierUser, token: token}
}

// Service returns the privileged credential.
func Service() Credential {
	return Credential{tier: TierService}
}

// Tier returns the credential's tier.
func (c Credential) Tier() Tier { return c.tier }

// UserToken returns the forwarded token for TierUser credentials.
func (c Credential) UserToken() string { return c.token }
