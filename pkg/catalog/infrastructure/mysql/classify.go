package mysql

import (
	"context"
	"database/sql/driver"
	"io"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"catalogservice/pkg/catalog/domain/model"
)

// Server error numbers that mean the store cannot take work right now.
var unavailableCodes = map[uint16]struct{}{
	1040: {}, // too many connections
	1053: {}, // server shutdown in progress
	1205: {}, // lock wait timeout
	2002: {}, // can't connect through socket
	2003: {}, // can't connect to server
	2006: {}, // server has gone away
	2013: {}, // lost connection during query
}

// Server error numbers for credentials, database and privilege problems.
var rejectedCodes = map[uint16]struct{}{
	1044: {}, // access denied for user to database
	1045: {}, // access denied for user
	1049: {}, // unknown database
	1142: {}, // command denied
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &model.StoreError{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) model.FailureKind {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if _, ok := unavailableCodes[mysqlErr.Number]; ok {
			return model.Unavailable
		}
		if _, ok := rejectedCodes[mysqlErr.Number]; ok {
			return model.Rejected
		}
		return model.Other
	}

	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return model.Unavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.Unavailable
	}
	return model.Other
}
