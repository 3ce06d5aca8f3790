package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
)

// Entry describes one audit event to persist.
type Entry struct {
	OrderID              *uuid.UUID
	UserID               *uuid.UUID
	Type                 enums.AuditEventType
	Severity             enums.AuditSeverity
	StatusBefore         *string
	StatusAfter          *string
	DeliveryStatusBefore *string
	DeliveryStatusAfter  *string
	Metadata             any
}

// Recorder persists audit events, optionally inside a caller's transaction.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

type recorder struct {
	db *gorm.DB
}

// NewRecorder builds the audit trail writer.
func NewRecorder(db *gorm.DB) (Recorder, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit recorder requires a database")
	}
	return &recorder{db: db}, nil
}

func (r *recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if entry.Type == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit entry requires a type")
	}
	severity := entry.Severity
	if severity == "" {
		severity = enums.AuditSeverityLow
	}

	var metadata json.RawMessage
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit metadata")
		}
		metadata = raw
	}

	conn := r.db
	if tx != nil {
		conn = tx
	}
	event := models.AuditEvent{
		ID:                   uuid.New(),
		OrderID:              entry.OrderID,
		UserID:               entry.UserID,
		Type:                 entry.Type,
		Severity:             severity,
		StatusBefore:         entry.StatusBefore,
		StatusAfter:          entry.StatusAfter,
		DeliveryStatusBefore: entry.DeliveryStatusBefore,
		DeliveryStatusAfter:  entry.DeliveryStatusAfter,
		Metadata:             metadata,
	}
	return conn.WithContext(ctx).Create(&event).Error
}

// StatusChange is a convenience constructor for order status transitions.
func StatusChange(orderID uuid.UUID, eventType enums.AuditEventType, before, after enums.OrderStatus) Entry {
	b, a := before.String(), after.String()
	return Entry{
		OrderID:      &orderID,
		Type:         eventType,
		StatusBefore: &b,
		StatusAfter:  &a,
	}
}
