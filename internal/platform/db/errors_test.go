package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert cliente: %w", &pgconn.PgError{Code: "23505", ConstraintName: "clientes_numero_ci_activo"})
	fk := &pgconn.PgError{Code: "23503"}

	if !IsUniqueViolation(unique) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if ConstraintName(unique) != "clientes_numero_ci_activo" {
		t.Errorf("unexpected constraint %q", ConstraintName(unique))
	}
	if IsUniqueViolation(fk) || !IsForeignKeyViolation(fk) {
		t.Error("expected 23503 to be classified as a foreign key violation only")
	}
	if !IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to be detected")
	}
	if IsUniqueViolation(fmt.Errorf("plain")) || ConstraintName(nil) != "" {
		t.Error("expected plain errors to be unclassified")
	}
}
