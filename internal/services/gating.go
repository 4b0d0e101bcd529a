package services

import (
	"context"
	"fmt"

	"sdp-backend/internal/models"
)

// refreshGating recomputes the account's derived flags from its current
// state and persists them when they drifted. Every path that changes
// verification state or addresses goes through here.
func refreshGating(ctx context.Context, accounts AccountStore, a *models.Account) error {
	addresses, err := accounts.ListAddresses(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}
	if a.ApplyGating(models.DeriveGating(a, addresses)) {
		if err := accounts.UpdateGating(ctx, a.ID, models.Gating{
			ProfileComplete: a.ProfileComplete,
			CanPlaceOrders:  a.CanPlaceOrders,
		}); err != nil {
			return fmt.Errorf("update gating: %w", err)
		}
	}
	return nil
}
