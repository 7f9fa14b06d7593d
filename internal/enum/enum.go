package enum

// Order lifecycle (CHECK constrained in DB).

const (
	OrderStatusUnpaid     = "unpaid"
	OrderStatusExpired    = "expired"
	OrderStatusPaid       = "paid"
	OrderStatusInProgress = "in_progress"
	OrderStatusDone       = "done"
)

// Addon group selection modes (stored in product jsonb).

const (
	AddonTypeOne      = "one"
	AddonTypeMultiple = "multiple"
)

// Payment method labels.

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
)

// IsValidPaymentMethod reports whether s is a known payment method.
func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodQRIS, PaymentMethodTransfer:
		return true
	}
	return false
}

// IsValidAddonType reports whether s is a known selection mode.
func IsValidAddonType(s string) bool {
	switch s {
	case AddonTypeOne, AddonTypeMultiple:
		return true
	}
	return false
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusUnpaid, OrderStatusExpired, OrderStatusPaid,
		OrderStatusInProgress, OrderStatusDone:
		return true
	}
	return false
}

// CanTransitionOrderStatus reports whether an order may move from one
// status to another. Terminal statuses (expired, done) never move.
func CanTransitionOrderStatus(from, to string) bool {
	switch from {
	case OrderStatusUnpaid:
		return to == OrderStatusPaid || to == OrderStatusExpired
	case OrderStatusPaid:
		return to == OrderStatusInProgress
	case OrderStatusInProgress:
		return to == OrderStatusDone
	}
	return false
}
