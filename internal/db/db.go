// Package db wraps the SQL connection used by the resume store.
package db

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
)

type DB interface {
	InitDB() error
	Get() *sql.DB
	Close() error
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}
