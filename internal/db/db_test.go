package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
)

func TestWithConnParams(t *testing.T) {
	got := withConnParams("app.db")
	want := "app.db?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate"
	if got != want {
		t.Fatalf("withConnParams(app.db) = %q, want %q", got, want)
	}

	got = withConnParams("file:x?mode=memory&cache=shared&_busy_timeout=100")
	want = "file:x?mode=memory&cache=shared&_busy_timeout=100&_foreign_keys=1&_txlock=immediate"
	if got != want {
		t.Fatalf("withConnParams(memory) = %q, want %q", got, want)
	}
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected applied migrations")
	}
	_ = d.Close()

	// Reopening must not re-apply anything.
	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	var n2 int
	if err := d.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n2); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n2 != n {
		t.Fatalf("migrations re-applied: before=%d after=%d", n, n2)
	}
}

func TestRollbackLast_DropsSchema(t *testing.T) {
	d, err := Open("file:rollbacktest?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	if err := RollbackLast(d); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	var name string
	err = d.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='delivery_assignments'`).Scan(&name)
	if err == nil {
		t.Fatalf("expected delivery_assignments to be dropped")
	}
}

func TestActiveAssignmentUniqueIndex(t *testing.T) {
	d, err := Open("file:uniqueidx?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	ctx := context.Background()
	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := d.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	mustExec(`INSERT INTO orders (id, order_number, created_at, updated_at) VALUES ('o1','N1',CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`)
	mustExec(`INSERT INTO delivery_partners (id, name, created_at, updated_at) VALUES ('p1','P',CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`)
	insert := func(id, status string) error {
		_, err := d.ExecContext(ctx, `INSERT INTO delivery_assignments (id, order_id, delivery_partner_id, status, pickup_otp, delivery_otp, assigned_at) VALUES (?,?,?,?,?,?,CURRENT_TIMESTAMP)`,
			id, "o1", "p1", status, "111111", "222222")
		return err
	}
	if err := insert("a1", "cancelled"); err != nil {
		t.Fatalf("insert cancelled: %v", err)
	}
	if err := insert("a2", "assigned"); err != nil {
		t.Fatalf("insert active: %v", err)
	}
	err = insert("a3", "accepted")
	if err == nil {
		t.Fatalf("expected unique violation for second active assignment")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("IsUniqueViolation(%v) = false", err)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Fatalf("nil must not be transient")
	}
	if !IsTransient(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline must be transient")
	}
	if !IsTransient(sqlite3.Error{Code: sqlite3.ErrBusy}) {
		t.Fatalf("busy must be transient")
	}
	if IsTransient(errors.New("boom")) {
		t.Fatalf("plain error must not be transient")
	}
}
