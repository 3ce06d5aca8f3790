package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message shown to admins when orders complete or
// get canceled. Written best-effort; failures never affect the order.
type Notification struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	Title     string     `gorm:"column:title;not null"`
	Body      string     `gorm:"column:body;not null"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
