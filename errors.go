package main

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds. Only ErrConnection aborts a run; the others are scoped to one
// table and get recorded in the report or stats.
var (
	ErrConnection           = errors.New("connection error")
	ErrTableNotFound        = errors.New("table not found")
	ErrColumnNotFound       = errors.New("column not found")
	ErrConstraintViolation  = errors.New("constraint violation")
	ErrVerificationMismatch = errors.New("verification mismatch")
)

// MigrationError attaches a kind and the table/column it concerns to an
// underlying error.
type MigrationError struct {
	Kind   error
	Table  string
	Column string
	Err    error
}

func (e *MigrationError) Error() string {
	target := e.Table
	if e.Column != "" {
		target += "." + e.Column
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", target, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", target, e.Kind, e.Err)
}

func (e *MigrationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func tableError(kind error, table string, err error) error {
	return &MigrationError{Kind: kind, Table: table, Err: err}
}

func columnError(kind error, table, column string, err error) error {
	return &MigrationError{Kind: kind, Table: table, Column: column, Err: err}
}

func connectionError(what string, err error) error {
	return &MigrationError{Kind: ErrConnection, Table: what, Err: err}
}

// isFatal reports whether err must halt the whole run.
func isFatal(err error) bool {
	return errors.Is(err, ErrConnection)
}

// classifyInsertError tags PostgreSQL integrity violations (SQLSTATE class 23).
func classifyInsertError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return tableError(ErrConstraintViolation, table, err)
	}
	return err
}
