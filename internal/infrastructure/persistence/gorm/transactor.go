package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/platewise/v1/internal/ports/outbound"
)

type txKey struct{}

// Transactor runs a function inside a database transaction. The transaction
// handle travels in the context so repository calls made by the function
// join it transparently.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a GORM-backed transactor.
func NewTransactor(db *gorm.DB) outbound.Transactor {
	return &Transactor{db: db}
}

// Transact runs fn inside a transaction, committing on nil and rolling back
// on error or panic.
func (t *Transactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// session returns the ambient transaction if one is in the context, falling
// back to the base connection.
func session(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
