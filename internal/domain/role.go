package domain

// Role is the closed set of principal roles. Authorization decisions go
// through the capability methods below rather than comparing strings at
// call sites.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClient:
		return true
	default:
		return false
	}
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID int64
	Role   Role
}

// CanManageCatalog gates product and category mutations.
func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin
}

// CanViewAllCarts allows listing carts of every user.
func (r Role) CanViewAllCarts() bool {
	return r == RoleAdmin
}

// CanViewAllBills allows listing and reading bills of every user.
func (r Role) CanViewAllBills() bool {
	return r == RoleAdmin
}

// CanModifyAnyBill allows cancelling or editing bills owned by other users.
func (r Role) CanModifyAnyBill() bool {
	return r == RoleAdmin
}

// CanMarkBillPaid gates the pending -> paid transition.
func (r Role) CanMarkBillPaid() bool {
	return r == RoleAdmin
}

// CanCheckout gates the cart checkout flow, which is always scoped to the
// caller's own cart.
func (r Role) CanCheckout() bool {
	return r == RoleClient
}

// OwnsBill reports whether the principal may act on the given bill without
// the admin override.
func (p Principal) OwnsBill(b *Bill) bool {
	return b != nil && b.UserID == p.UserID
}
