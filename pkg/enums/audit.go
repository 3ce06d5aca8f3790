package enums

// AuditEventType labels entries in the order audit trail.
type AuditEventType string

const (
	AuditOrderCreated      AuditEventType = "order_created"
	AuditOrderCompleted    AuditEventType = "order_completed"
	AuditOrderCanceled     AuditEventType = "order_canceled"
	AuditInventoryRestored AuditEventType = "inventory_restored"
	AuditVoucherReleased   AuditEventType = "voucher_released"
	AuditSecurityEvent     AuditEventType = "security_event"
)

// AuditSeverity ranks audit entries for review triage.
type AuditSeverity string

const (
	AuditSeverityLow    AuditSeverity = "low"
	AuditSeverityMedium AuditSeverity = "medium"
	AuditSeverityHigh   AuditSeverity = "high"
)

// String implements fmt.Stringer.
func (t AuditEventType) String() string { return string(t) }

// String implements fmt.Stringer.
func (s AuditSeverity) String() string { return string(s) }
