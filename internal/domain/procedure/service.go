package procedure

import (
	"context"
	"fmt"
	"strings"

	"github.com/gousa/visacrm/internal/platform/auth"
	"github.com/gousa/visacrm/internal/platform/db"
)

// Audit trail texts.
const (
	ActionCreated = "Trámite creado"
	ActionUpdated = "Trámite actualizado"
	ActionDeleted = "Trámite eliminado"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func normalize(p *Procedure) {
	p.AssignedUser = optional(p.AssignedUser)
	p.DS160Code = optional(p.DS160Code)
	p.CourierCode = optional(p.CourierCode)
	p.VisaNumber = optional(p.VisaNumber)
	p.Notes = optional(p.Notes)
}

func validate(p *Procedure) error {
	if p.CustomerID <= 0 {
		return fmt.Errorf("%w: customer_id is required", ErrInvalid)
	}
	if p.TypeID <= 0 || p.ProcessStateID <= 0 || p.PaymentStateID <= 0 {
		return fmt.Errorf("%w: type_id, process_state_id and payment_state_id are required", ErrInvalid)
	}
	if !p.VisaIssued.IsZero() && !p.VisaExpires.IsZero() && !p.VisaExpires.After(p.VisaIssued) {
		return fmt.Errorf("%w: visa_expires must be after visa_issued", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Procedure) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p, auth.ActorFromContext(ctx), ActionCreated)
}

func (s *Service) Get(ctx context.Context, id int, vis db.Visibility) (*Procedure, error) {
	return s.repo.GetByID(ctx, id, vis)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int, vis db.Visibility) ([]*Procedure, error) {
	return s.repo.ListByCustomer(ctx, customerID, vis)
}

// Update replaces the editable fields. The customer never changes.
func (s *Service) Update(ctx context.Context, p *Procedure) error {
	current, err := s.repo.GetByID(ctx, p.ID, db.ActiveOnly)
	if err != nil {
		return err
	}
	p.CustomerID = current.CustomerID
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p, auth.ActorFromContext(ctx), describeChanges(current, p))
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.SoftDelete(ctx, id, auth.ActorFromContext(ctx), ActionDeleted)
}

func (s *Service) Logs(ctx context.Context, id int) ([]*LogEntry, error) {
	if _, err := s.repo.GetByID(ctx, id, db.WithDeleted); err != nil {
		return nil, err
	}
	return s.repo.Logs(ctx, id)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// describeChanges names the fields that differ, e.g.
// "Trámite actualizado: estado de proceso, código DS-160".
func describeChanges(before, after *Procedure) string {
	var changed []string
	if before.TypeID != after.TypeID {
		changed = append(changed, "tipo de trámite")
	}
	if before.ProcessStateID != after.ProcessStateID {
		changed = append(changed, "estado de proceso")
	}
	if before.PaymentStateID != after.PaymentStateID {
		changed = append(changed, "estado de pago")
	}
	if !sameString(before.AssignedUser, after.AssignedUser) {
		changed = append(changed, "usuario asignado")
	}
	if !sameString(before.DS160Code, after.DS160Code) {
		changed = append(changed, "código DS-160")
	}
	if !sameString(before.CourierCode, after.CourierCode) {
		changed = append(changed, "código de courier")
	}
	if !sameString(before.VisaNumber, after.VisaNumber) || before.VisaIssued != after.VisaIssued || before.VisaExpires != after.VisaExpires {
		changed = append(changed, "datos de visa")
	}
	if !sameString(before.Notes, after.Notes) {
		changed = append(changed, "notas")
	}
	if len(changed) == 0 {
		return ActionUpdated
	}
	return ActionUpdated + ": " + strings.Join(changed, ", ")
}
