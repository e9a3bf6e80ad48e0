package reports

import (
	"context"
	"fmt"

	"github.com/meridian-retail/meridian/internal/shared"
)

// ShopAccess answers tenant isolation checks against the membership store.
type ShopAccess interface {
	HasShopAccess(ctx context.Context, shopID, userID int64) (bool, error)
}

// PermissionGate authorizes every public entry point before any
// computation runs: the caller must hold the report-specific permission
// or the blanket reports permission, and must have access to the shop.
type PermissionGate struct {
	access ShopAccess
}

// NewPermissionGate wires the gate with the shop membership checker.
func NewPermissionGate(access ShopAccess) *PermissionGate {
	return &PermissionGate{access: access}
}

// Authorize fails fast with shared.ErrForbidden; no query executes and no
// data is read for an unauthorized caller.
func (g *PermissionGate) Authorize(ctx context.Context, shopID int64, permission string) error {
	caller := shared.CallerFromContext(ctx)
	if caller == nil {
		return fmt.Errorf("%w: no caller identity", shared.ErrForbidden)
	}
	if !caller.HasAnyPermission(permission, shared.PermReportsViewAll) {
		return fmt.Errorf("%w: missing permission %s", shared.ErrForbidden, permission)
	}
	if g.access == nil {
		return fmt.Errorf("%w: shop access checker not configured", shared.ErrForbidden)
	}
	ok, err := g.access.HasShopAccess(ctx, shopID, caller.ID)
	if err != nil {
		return shared.StorageError("shop access", err)
	}
	if !ok {
		return fmt.Errorf("%w: shop %d", shared.ErrForbidden, shopID)
	}
	return nil
}
