package mysql

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"catalogservice/pkg/catalog/domain/model"
)

type Config struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string

	ConnectTimeout time.Duration
	// OperationTimeout bounds every statement issued on a connection.
	OperationTimeout time.Duration
}

func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Name
	cfg.Timeout = c.ConnectTimeout
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

type connector struct {
	config Config
}

func NewConnector(config Config) model.Connector {
	return &connector{config: config}
}

func (c *connector) Connect(ctx context.Context) (model.Connection, error) {
	db, err := sqlx.Open("mysql", c.config.DSN())
	if err != nil {
		return nil, classify("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	pingCtx, cancel := withTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, classify("connect", err)
	}

	return newConnection(db, c.config.OperationTimeout), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
