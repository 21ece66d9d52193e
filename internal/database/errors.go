package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

var (
	// ErrConnection is returned when the connection to the store is lost or
	// cannot be established.
	ErrConnection = errors.New("database connection error")
	// ErrClosed is returned by Execute after Close.
	ErrClosed = errors.New("database is closed")
)

// DriverError is a statement failure reported by the database server.
type DriverError struct {
	// Driver is the database system (mysql, postgres, sqlite)
	Driver string
	// Code is the server error code (MySQL error number, SQLSTATE, SQLite result code)
	Code string
	// Message is the server message
	Message string
	// Err is the original driver error
	Err error
}

func (e *DriverError) Error() string {
	return e.Driver + " error " + e.Code + ": " + e.Message
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// classifyError maps driver-specific errors to ErrConnection and *DriverError.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &DriverError{
			Driver:  "mysql",
			Code:    strconv.Itoa(int(myErr.Number)),
			Message: myErr.Message,
			Err:     err,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DriverError{
			Driver:  "postgres",
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Err:     err,
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return &DriverError{
			Driver:  "sqlite",
			Code:    strconv.Itoa(liteErr.Code()),
			Message: liteErr.Error(),
			Err:     err,
		}
	}

	return err
}
