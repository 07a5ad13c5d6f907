package domain

// CanAccess reports whether principal may act on order: it must be
// authenticated and either own the order or hold the admin role.
func CanAccess(order *Order, principal *Principal) bool {
	if order == nil || !principal.IsAuthenticated() {
		return false
	}
	return principal.UserID == order.UserID || principal.Role == RoleAdmin
}
