package catalog

import (
	"context"
	"strings"
	"testing"
)

type mockRepo struct {
	entries map[Kind][]*Entry
	nextID  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[Kind][]*Entry)}
}

func (m *mockRepo) List(_ context.Context, kind Kind) ([]*Entry, error) {
	if _, ok := tables[kind]; !ok {
		return nil, ErrUnknownKind
	}
	return m.entries[kind], nil
}

func (m *mockRepo) GetByID(_ context.Context, kind Kind, id int) (*Entry, error) {
	for _, e := range m.entries[kind] {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Create(_ context.Context, kind Kind, e *Entry) error {
	for _, existing := range m.entries[kind] {
		if existing.Name == e.Name {
			return ErrDuplicate
		}
	}
	m.nextID++
	e.ID = m.nextID
	m.entries[kind] = append(m.entries[kind], e)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		if got, err := ParseKind(string(k)); err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("clientes"); err != ErrUnknownKind {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		entry   Entry
		wantErr bool
	}{
		{"procedure type", ProcedureTypes, Entry{Name: "  Visa de tránsito C1 "}, false},
		{"terminal process state", ProcessStates, Entry{Name: "Archivado", Terminal: boolPtr(true)}, false},
		{"empty name", AppointmentTypes, Entry{Name: "   "}, true},
		{"terminal on payment state", PaymentStates, Entry{Name: "Reembolsado", Terminal: boolPtr(true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockRepo())
			e := tt.entry
			err := svc.Create(context.Background(), tt.kind, &e)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (e.ID == 0 || e.Name != strings.TrimSpace(tt.entry.Name)) {
				t.Errorf("unexpected entry %+v", e)
			}
		})
	}
}
