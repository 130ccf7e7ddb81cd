package store

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// withTransaction runs fn inside the transaction carried by ctx. Without one, fn gets a
// new transaction that is committed when fn returns nil and rolled back otherwise.
func withTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}
