package model

import (
	"context"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID    int64           `db:"id"`
	Name  string          `db:"name"`
	Price decimal.Decimal `db:"price"`
}

// NewProduct is an insert candidate. Price stays raw text so the store's
// decimal column is the one that accepts or rejects it.
type NewProduct struct {
	Name  string `db:"name"`
	Price string `db:"price"`
}

// Connection is a single session to the store. It is opened per logical
// operation and must be closed by whoever opened it.
type Connection interface {
	CreateSchema(ctx context.Context) error
	CountProducts(ctx context.Context) (int, error)
	InsertProducts(ctx context.Context, products []NewProduct) error
	InsertProduct(ctx context.Context, product NewProduct) (int64, error)
	// ListProducts returns every product, most recently added first.
	ListProducts(ctx context.Context) ([]Product, error)
	Commit() error
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (Connection, error)
}
