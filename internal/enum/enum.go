package enum

// ── Roles (user_role enum in DB) ──

const (
	UserRoleAdmin      = "ADMIN"
	UserRoleEncargado  = "ENCARGADO"
	UserRoleCajero     = "CAJERO"
	UserRoleCocina     = "COCINA"
	UserRoleRepartidor = "REPARTIDOR"
)

// IsSupervisor reports whether role may authorize movements above the
// threshold without a PIN and verify PINs for others.
func IsSupervisor(role string) bool {
	return role == UserRoleAdmin || role == UserRoleEncargado
}

// IsValidRole reports whether role is one of the user_role values.
func IsValidRole(role string) bool {
	switch role {
	case UserRoleAdmin, UserRoleEncargado, UserRoleCajero, UserRoleCocina, UserRoleRepartidor:
		return true
	}
	return false
}

// ── Realtime event types ──

const (
	EventShiftOpened         = "shift.opened"
	EventShiftClosed         = "shift.closed"
	EventCashMovement        = "cash.movement"
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventOrderPosition       = "order.position"
	EventDeliveryReady       = "order.delivery_ready"
	EventSupplierPaymentMade = "supplier.payment"
)

// ── Discrepancy classification labels ──

const (
	DiscrepancyNormal      = "normal"
	DiscrepancyAdvertencia = "advertencia"
	DiscrepancyCritico     = "critico"
)
