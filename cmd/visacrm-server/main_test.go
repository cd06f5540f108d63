package main

import (
	"context"
	"errors"
	"testing"

	"github.com/gousa/visacrm/internal/domain/family"
	"github.com/gousa/visacrm/internal/domain/scheduling"
)

type stubFamilies struct {
	members map[int][]*family.ActiveMember
	err     error
}

func (s stubFamilies) ActiveMembers(_ context.Context, familyID int) ([]*family.ActiveMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.members[familyID]
	if !ok {
		return nil, family.ErrNotFound
	}
	return m, nil
}

func TestFamilyResolver_MapsMembers(t *testing.T) {
	email := "rosa@example.com"
	rel := "Madre"
	r := familyResolver{families: stubFamilies{members: map[int][]*family.ActiveMember{
		3: {
			{CustomerID: 10, FirstNames: "Rosa", LastNames: "Choque", Email: &email, Relationship: &rel,
				ProcedureID: 44, ProcedureType: "Visa de turismo", ProcessState: "En proceso"},
			{CustomerID: 11, FirstNames: "Mateo", LastNames: "", ProcedureID: 45, ProcedureType: "Visa de estudiante"},
		},
	}}}

	got, err := r.ActiveMembers(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got))
	}
	if got[0].DisplayName != "Rosa Choque" || got[0].ProcedureID != 44 || got[0].Email == nil || *got[0].Email != email {
		t.Errorf("unexpected first member: %+v", got[0])
	}
	if got[1].DisplayName != "Mateo" {
		t.Errorf("expected trimmed display name, got %q", got[1].DisplayName)
	}
}

func TestFamilyResolver_EmptyFamily(t *testing.T) {
	r := familyResolver{families: stubFamilies{members: map[int][]*family.ActiveMember{5: {}}}}
	got, err := r.ActiveMembers(context.Background(), 5)
	if err != nil || len(got) != 0 {
		t.Errorf("expected no members and no error, got %v, %v", got, err)
	}
}

func TestFamilyResolver_TranslatesNotFound(t *testing.T) {
	r := familyResolver{families: stubFamilies{}}
	if _, err := r.ActiveMembers(context.Background(), 9); !errors.Is(err, scheduling.ErrFamilyNotFound) {
		t.Errorf("expected scheduling.ErrFamilyNotFound, got %v", err)
	}

	boom := errors.New("connection refused")
	r = familyResolver{families: stubFamilies{err: boom}}
	if _, err := r.ActiveMembers(context.Background(), 9); !errors.Is(err, boom) {
		t.Errorf("expected storage error to pass through, got %v", err)
	}
}

func TestCommands(t *testing.T) {
	if cmd, _, err := migrateCmd().Find([]string{"status"}); err != nil || cmd.Flags().Lookup("schema") == nil {
		t.Errorf("migrate status should take --schema: %v", err)
	}
	if f := migrateCmd().Commands()[0].Flags().Lookup("schema"); f == nil || f.DefValue != "office_main" {
		t.Errorf("expected default schema office_main, got %+v", f)
	}
	if cmd, _, err := officeCmd().Find([]string{"create"}); err != nil || cmd.Flags().Lookup("name") == nil {
		t.Errorf("office create should take --name: %v", err)
	}
}
