package models

// Gating holds the flags derived from an account's verification state and
// addresses. They are never set directly.
type Gating struct {
	ProfileComplete bool
	CanPlaceOrders  bool
}

// DeriveGating computes the gating flags from current state.
func DeriveGating(a *Account, addresses []Address) Gating {
	verified := a.EmailVerified && a.MobileVerified

	hasVerifiedAddress := false
	for _, addr := range addresses {
		if addr.Verified {
			hasVerifiedAddress = true
			break
		}
	}

	return Gating{
		ProfileComplete: verified && len(addresses) > 0,
		CanPlaceOrders:  verified && hasVerifiedAddress,
	}
}

// ApplyGating copies g onto the account and reports whether anything changed
func (a *Account) ApplyGating(g Gating) bool {
	changed := a.ProfileComplete != g.ProfileComplete || a.CanPlaceOrders != g.CanPlaceOrders
	a.ProfileComplete = g.ProfileComplete
	a.CanPlaceOrders = g.CanPlaceOrders
	return changed
}
