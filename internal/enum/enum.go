package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	ReservationStatusBooked    = "BOOKED"
	ReservationStatusCheckedIn = "CHECKED_IN"
	ReservationStatusSeated    = "SEATED"
	ReservationStatusCompleted = "COMPLETED"
	ReservationStatusCanceled  = "CANCELED"
	ReservationStatusNoShow    = "NO_SHOW"
)

const (
	PreOrderStatusDraft      = "DRAFT"
	PreOrderStatusAuthorized = "AUTHORIZED"
	PreOrderStatusInjected   = "INJECTED"
	PreOrderStatusClosed     = "CLOSED"
	PreOrderStatusRefunded   = "REFUNDED"
	PreOrderStatusAdjusted   = "ADJUSTED"
)

const (
	TicketStatusPending = "PENDING"
	TicketStatusHold    = "HOLD"
	TicketStatusFired   = "FIRED"
	TicketStatusReady   = "READY"
	TicketStatusServed  = "SERVED"
)

const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusCaptured = "CAPTURED"
	PaymentStatusRefunded = "REFUNDED"
	PaymentStatusFailed   = "FAILED"
)

// ── Group B: Borderline (CHECK constrained in DB) ──

const (
	CheckInMethodQRScan      = "QR_SCAN"
	CheckInMethodManual      = "MANUAL"
	CheckInMethodIntegration = "INTEGRATION"
)

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleKitchen = "KITCHEN"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	AuditPreOrderCreated      = "preorder.created"
	AuditPreOrderItemUpdated  = "preorder.item_updated"
	AuditPreOrderItemRemoved  = "preorder.item_removed"
	AuditPreOrderStatusSet    = "preorder.status_set"
	AuditReservationCheckedIn = "reservation.checked_in"
	AuditTicketFired          = "ticket.fired"
	AuditTicketTransition     = "ticket.transition"
)

const (
	SoundReadyAlert     = "ready_alert"
	SoundEmergencyAlert = "emergency_alert"
)
