package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"catalogservice/pkg/catalog/domain/model"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS products (
    id INT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    price DECIMAL(10,2) NOT NULL,
    CONSTRAINT products_price_non_negative CHECK (price >= 0)
)`
	countQuery  = `SELECT COUNT(*) FROM products`
	selectQuery = `SELECT id, name, price FROM products ORDER BY id DESC`
	insertQuery = `INSERT INTO products (name, price) VALUES (:name, :price)`
)

type connection struct {
	db      *sqlx.DB
	tx      *sqlx.Tx
	timeout time.Duration
	closed  bool
}

func newConnection(db *sqlx.DB, timeout time.Duration) *connection {
	return &connection{db: db, timeout: timeout}
}

func (c *connection) CreateSchema(ctx context.Context) error {
	return c.exec(ctx, "create schema", func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, createTableQuery)
		return err
	})
}

func (c *connection) CountProducts(ctx context.Context) (int, error) {
	if c.closed {
		return 0, model.ErrConnectionClosed
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var count int
	if err := sqlx.GetContext(ctx, c.queryer(), &count, countQuery); err != nil {
		return 0, classify("count products", err)
	}
	return count, nil
}

func (c *connection) InsertProducts(ctx context.Context, products []model.NewProduct) error {
	if len(products) == 0 {
		return nil
	}
	return c.exec(ctx, "insert products", func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, insertQuery, products)
		return err
	})
}

func (c *connection) InsertProduct(ctx context.Context, product model.NewProduct) (int64, error) {
	var id int64
	err := c.exec(ctx, "insert product", func(ctx context.Context, tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx, insertQuery, product)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

func (c *connection) ListProducts(ctx context.Context) ([]model.Product, error) {
	if c.closed {
		return nil, model.ErrConnectionClosed
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var products []model.Product
	if err := sqlx.SelectContext(ctx, c.queryer(), &products, selectQuery); err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (c *connection) Commit() error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// Close rolls back anything not committed and releases the handle.
func (c *connection) Close() error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	c.closed = true

	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return c.db.Close()
}

func (c *connection) exec(ctx context.Context, op string, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if c.tx == nil {
		// Not bound to ctx: the per-statement timeout must not roll back
		// the transaction before Commit.
		tx, err := c.db.BeginTxx(context.Background(), nil)
		if err != nil {
			return classify(op, err)
		}
		c.tx = tx
	}

	if err := fn(ctx, c.tx); err != nil {
		return classify(op, err)
	}
	return nil
}

// With one open connection, reads must go through a pending transaction.
func (c *connection) queryer() sqlx.QueryerContext {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}
