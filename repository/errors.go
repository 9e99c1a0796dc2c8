package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by procedures when the targeted row does not exist
	// or does not match the supplied predicate (e.g. a wrong OTP).
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness rule would be violated,
	// e.g. a second active assignment for the same order.
	ErrConflict = errors.New("conflict")
	// ErrStateChanged is returned when a compare-and-swap on a status column failed
	// because the row is no longer in the expected state.
	ErrStateChanged = errors.New("state changed")
)

// nowUTC is the clock used for every timestamp written by this package.
var nowUTC = func() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }

// withTx runs fn inside a transaction. The store opens transactions with
// BEGIN IMMEDIATE so concurrent writers serialize on the first statement.
func withTx(ctx context.Context, d *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

// nullable converts a typed nil pointer into an untyped nil for the driver.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
