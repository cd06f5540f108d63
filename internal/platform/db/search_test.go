package db

import (
	"fmt"
	"strings"
	"testing"
)

func TestSearchQuery_Contains(t *testing.T) {
	q := NewSearchQuery("clientes", "id, nombres", "fecha_eliminacion", ActiveOnly)
	q.AddContains("  pérez ", "nombres", "apellidos")
	q.Add(fmt.Sprintf("id > $%d", q.Idx()), 10)
	q.OrderBy("fecha_creacion DESC")

	count := q.CountSQL()
	if !strings.Contains(count, "fecha_eliminacion IS NULL") {
		t.Errorf("expected soft-delete predicate, got %s", count)
	}
	if !strings.Contains(count, "(nombres ILIKE $1 OR apellidos ILIKE $1)") {
		t.Errorf("expected shared placeholder, got %s", count)
	}
	if !strings.Contains(count, "id > $2") {
		t.Errorf("expected second placeholder, got %s", count)
	}

	data := q.DataSQL()
	if !strings.HasSuffix(data, "ORDER BY fecha_creacion DESC LIMIT $3 OFFSET $4") {
		t.Errorf("unexpected data sql %s", data)
	}
	args := q.DataArgs(20, 40)
	if len(args) != 4 || args[0] != "%pérez%" || args[2] != 20 || args[3] != 40 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestSearchQuery_BlankTermAddsNothing(t *testing.T) {
	q := NewSearchQuery("familias", "id", "fecha_eliminacion", WithDeleted)
	q.AddContains("   ", "nombre")
	if q.Idx() != 1 || len(q.CountArgs()) != 0 {
		t.Errorf("expected no clause, idx=%d args=%v", q.Idx(), q.CountArgs())
	}
	if strings.Contains(q.CountSQL(), "ILIKE") {
		t.Errorf("unexpected ILIKE in %s", q.CountSQL())
	}
}

func TestSearchQuery_EscapesWildcards(t *testing.T) {
	q := NewSearchQuery("clientes", "id", "fecha_eliminacion", ActiveOnly)
	q.AddContains("50%_off", "nombres")
	if got := q.CountArgs()[0]; got != `%50\%\_off%` {
		t.Errorf("expected escaped pattern, got %v", got)
	}
}
