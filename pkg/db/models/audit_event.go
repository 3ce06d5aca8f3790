package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/thanhhuy/storefront-backend/pkg/enums"
)

// AuditEvent records order creation, status transitions, rollbacks, and
// security events with before/after values.
type AuditEvent struct {
	ID       uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	UserID   *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	Type     enums.AuditEventType `gorm:"column:type;type:text;not null"`
	Severity enums.AuditSeverity  `gorm:"column:severity;type:text;not null;default:'low'"`

	StatusBefore         *string `gorm:"column:status_before"`
	StatusAfter          *string `gorm:"column:status_after"`
	DeliveryStatusBefore *string `gorm:"column:delivery_status_before"`
	DeliveryStatusAfter  *string `gorm:"column:delivery_status_after"`

	Metadata json.RawMessage `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
