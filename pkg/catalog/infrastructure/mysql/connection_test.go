package mysql

import (
	"context"
	"database/sql/driver"
	"net"
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogservice/pkg/catalog/domain/model"
)

func setup(t *testing.T) (*connection, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return newConnection(sqlx.NewDb(db, "mysql"), time.Second), mock
}

func TestListProducts(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow(int64(2), "Chair", "10.50").
			AddRow(int64(1), "Table", "99"))
	mock.ExpectClose()

	products, err := conn.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(2), products[0].ID)
	assert.Equal(t, "Chair", products[0].Name)
	assert.Equal(t, "10.50", products[0].Price.StringFixed(2))
	assert.Equal(t, "99.00", products[1].Price.StringFixed(2))

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsQueryFailure(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'shop.products' doesn't exist"})
	mock.ExpectClose()

	_, err := conn.ListProducts(context.Background())

	var storeErr *model.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, model.Other, storeErr.Kind)
	assert.Contains(t, err.Error(), "doesn't exist")

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProductCommits(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WithArgs("Chair", "10.50").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	id, err := conn.InsertProduct(context.Background(), model.NewProduct{Name: "Chair", Price: "10.50"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.NoError(t, conn.Commit())
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProductsIsOneStatement(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WithArgs("Keyboard", "149.90", "Mouse", "79.90", "Monitor", "899.00").
		WillReturnResult(sqlmock.NewResult(3, 3))
	mock.ExpectCommit()
	mock.ExpectClose()

	err := conn.InsertProducts(context.Background(), []model.NewProduct{
		{Name: "Keyboard", Price: "149.90"},
		{Name: "Mouse", Price: "79.90"},
		{Name: "Monitor", Price: "899.00"},
	})
	require.NoError(t, err)

	require.NoError(t, conn.Commit())
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaThenCountUsesTransaction(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, conn.CreateSchema(ctx))
	require.NoError(t, conn.Commit())

	count, err := conn.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaRejectsNegativePrice(t *testing.T) {
	assert.Contains(t, createTableQuery, "CHECK (price >= 0)")
}

func TestInsertNegativePriceSurfacesCheckViolation(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WithArgs("Refund", "-5").
		WillReturnError(&mysql.MySQLError{Number: 3819, Message: "Check constraint 'products_price_non_negative' is violated."})
	mock.ExpectRollback()
	mock.ExpectClose()

	_, err := conn.InsertProduct(context.Background(), model.NewProduct{Name: "Refund", Price: "-5"})

	var storeErr *model.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, model.Other, storeErr.Kind)
	assert.Contains(t, err.Error(), "products_price_non_negative")

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseRollsBackUncommitted(t *testing.T) {
	conn, mock := setup(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WithArgs("Chair", "abc").
		WillReturnError(&mysql.MySQLError{Number: 1366, Message: "Incorrect decimal value: 'abc'"})
	mock.ExpectRollback()
	mock.ExpectClose()

	_, err := conn.InsertProduct(context.Background(), model.NewProduct{Name: "Chair", Price: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect decimal value")

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseTwice(t *testing.T) {
	conn, mock := setup(t)
	mock.ExpectClose()

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Close(), model.ErrConnectionClosed)

	_, err := conn.ListProducts(context.Background())
	assert.ErrorIs(t, err, model.ErrConnectionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitWithoutWritesIsNoop(t *testing.T) {
	conn, mock := setup(t)
	mock.ExpectClose()

	assert.NoError(t, conn.Commit())
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.FailureKind
	}{
		{"access denied", &mysql.MySQLError{Number: 1045}, model.Rejected},
		{"unknown database", &mysql.MySQLError{Number: 1049}, model.Rejected},
		{"syntax", &mysql.MySQLError{Number: 1064}, model.Other},
		{"gone away", &mysql.MySQLError{Number: 2006}, model.Unavailable},
		{"bad conn", driver.ErrBadConn, model.Unavailable},
		{"invalid conn", mysql.ErrInvalidConn, model.Unavailable},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, model.Unavailable},
		{"dns", &net.DNSError{Err: "no such host", Name: "db", IsNotFound: true}, model.Unavailable},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "ping"), model.Unavailable},
		{"plain", errors.New("boom"), model.Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("connect", tt.err)

			var storeErr *model.StoreError
			require.True(t, errors.As(err, &storeErr))
			assert.Equal(t, tt.want, storeErr.Kind)
			assert.Equal(t, tt.want == model.Unavailable, model.IsUnavailable(err))
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{
		Host:           "db",
		Port:           3306,
		Name:           "shop",
		User:           "app",
		Password:       "secret",
		ConnectTimeout: 5 * time.Second,
	}

	parsed, err := mysql.ParseDSN(cfg.DSN())

	require.NoError(t, err)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "shop", parsed.DBName)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.True(t, parsed.ParseTime)
}

func TestConnectUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	connector := NewConnector(Config{
		Host:           "127.0.0.1",
		Port:           addr.Port,
		Name:           "shop",
		User:           "app",
		Password:       "secret",
		ConnectTimeout: time.Second,
	})

	conn, err := connector.Connect(context.Background())

	assert.Nil(t, conn)
	assert.True(t, model.IsUnavailable(err), "got %v", err)
}
