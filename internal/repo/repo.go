package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM connection shared by the domain repositories and
// standardizes context binding.
type Base struct {
	db *gorm.DB
}

// NewBase wraps the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to the supplied context. A nil context
// yields the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithConn rebinds the base onto another connection, typically an open
// transaction. A nil connection keeps the current one.
func (b Base) WithConn(conn *gorm.DB) Base {
	if conn == nil {
		return b
	}
	return Base{db: conn}
}
