package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpExtractsPgxDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_external_id_key", TableName: "orders"}
	err := Wrap(CodeConflict, fmt.Errorf("insert order: %w", pgErr), "create order")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "orders_external_id_key" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
	if d.Fields()["pg_table"] != "orders" {
		t.Fatalf("fields missing pg_table: %v", d.Fields())
	}
}

func TestDumpExtractsPqDetails(t *testing.T) {
	err := fmt.Errorf("decrement: %w", &pq.Error{Code: "23514", Constraint: "products_stock_check", Table: "products"})
	d := Dump(err)
	if d.PGCode != "23514" || d.PGTable != "products" {
		t.Fatalf("unexpected pq fields %+v", d)
	}
	if _, ok := d.Fields()["error_code"]; ok {
		t.Fatalf("untyped errors should not carry error_code")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
