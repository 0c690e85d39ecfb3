// Package testutil provides an in-memory store that behaves like the MySQL
// client closely enough for service, bootstrap and transport tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"catalogservice/pkg/catalog/domain/model"
)

var ErrUnreachable = errors.New("dial tcp 10.0.0.1:3306: connect: connection refused")

func Unavailable() error {
	return &model.StoreError{Kind: model.Unavailable, Op: "connect", Err: ErrUnreachable}
}

func Rejected() error {
	return &model.StoreError{Kind: model.Rejected, Op: "connect", Err: errors.New("Error 1045 (28000): Access denied for user 'app'")}
}

type Store struct {
	mu sync.Mutex

	schema   bool
	products []model.Product
	nextID   int64

	// ConnectErrs are returned, in order, by the first Connect calls.
	ConnectErrs []error
	// Down makes every Connect fail as unavailable.
	Down bool
	// SchemaErrs are returned, in order, by the first CreateSchema calls.
	SchemaErrs []error
	// QueryErr is returned by ListProducts.
	QueryErr error
	// InsertErr is returned by InsertProduct.
	InsertErr error

	Connects int
	open     int
	Inserts  int
}

func NewStore() *Store {
	return &Store{nextID: 1}
}

// Seeded returns a store whose table already exists and holds products.
func Seeded(products ...model.NewProduct) *Store {
	s := NewStore()
	s.schema = true
	for _, p := range products {
		s.add(p)
	}
	return s
}

func (s *Store) Connect(_ context.Context) (model.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Connects++
	if len(s.ConnectErrs) > 0 {
		err := s.ConnectErrs[0]
		s.ConnectErrs = s.ConnectErrs[1:]
		return nil, err
	}
	if s.Down {
		return nil, Unavailable()
	}
	s.open++
	return &conn{store: s}, nil
}

func (s *Store) Products() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Product(nil), s.products...)
}

func (s *Store) HasSchema() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// OpenConnections counts connections handed out and not yet closed.
func (s *Store) OpenConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) add(p model.NewProduct) model.Product {
	price, _ := decimal.NewFromString(p.Price)
	product := model.Product{ID: s.nextID, Name: p.Name, Price: price.Round(2)}
	s.nextID++
	s.products = append(s.products, product)
	return product
}

type conn struct {
	store   *Store
	pending []model.NewProduct
	closed  bool
}

func (c *conn) CreateSchema(context.Context) error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if len(c.store.SchemaErrs) > 0 {
		err := c.store.SchemaErrs[0]
		c.store.SchemaErrs = c.store.SchemaErrs[1:]
		return err
	}
	c.store.schema = true
	return nil
}

func (c *conn) CountProducts(context.Context) (int, error) {
	if c.closed {
		return 0, model.ErrConnectionClosed
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if !c.store.schema {
		return 0, missingTable()
	}
	return len(c.store.products) + len(c.pending), nil
}

func (c *conn) InsertProducts(_ context.Context, products []model.NewProduct) error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	for _, p := range products {
		if err := validate(p); err != nil {
			return err
		}
	}
	c.store.mu.Lock()
	c.store.Inserts++
	c.store.mu.Unlock()
	c.pending = append(c.pending, products...)
	return nil
}

func (c *conn) InsertProduct(_ context.Context, product model.NewProduct) (int64, error) {
	if c.closed {
		return 0, model.ErrConnectionClosed
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.InsertErr != nil {
		return 0, c.store.InsertErr
	}
	if !c.store.schema {
		return 0, missingTable()
	}
	if err := validate(product); err != nil {
		return 0, err
	}
	c.store.Inserts++
	c.pending = append(c.pending, product)
	return c.store.nextID + int64(len(c.pending)) - 1, nil
}

func (c *conn) ListProducts(context.Context) ([]model.Product, error) {
	if c.closed {
		return nil, model.ErrConnectionClosed
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.QueryErr != nil {
		return nil, c.store.QueryErr
	}
	if !c.store.schema {
		return nil, missingTable()
	}
	products := append([]model.Product(nil), c.store.products...)
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })
	return products, nil
}

func (c *conn) Commit() error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for _, p := range c.pending {
		c.store.add(p)
	}
	c.pending = nil
	return nil
}

func (c *conn) Close() error {
	if c.closed {
		return model.ErrConnectionClosed
	}
	c.closed = true
	c.pending = nil
	c.store.mu.Lock()
	c.store.open--
	c.store.mu.Unlock()
	return nil
}

func validate(p model.NewProduct) error {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return &model.StoreError{
			Kind: model.Other,
			Op:   "insert product",
			Err:  errors.Errorf("Error 1366 (HY000): Incorrect decimal value: '%s' for column 'price' at row 1", p.Price),
		}
	}
	if price.IsNegative() {
		return &model.StoreError{
			Kind: model.Other,
			Op:   "insert product",
			Err:  errors.New("Error 3819 (HY000): Check constraint 'products_price_non_negative' is violated."),
		}
	}
	if utf8.RuneCountInString(p.Name) > 100 {
		return &model.StoreError{
			Kind: model.Other,
			Op:   "insert product",
			Err:  errors.New("Error 1406 (22001): Data too long for column 'name' at row 1"),
		}
	}
	return nil
}

func missingTable() error {
	return &model.StoreError{
		Kind: model.Other,
		Op:   "query",
		Err:  errors.New("Error 1146 (42S02): Table 'shop.products' doesn't exist"),
	}
}
