package family

import (
	"context"
	"fmt"
	"strings"

	"github.com/gousa/visacrm/internal/platform/db"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validate(f *Family) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Description != nil {
		f.Description = optional(*f.Description)
	}
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(f.Name) > 255 {
		return fmt.Errorf("%w: name must be at most 255 characters", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, f *Family) error {
	if err := validate(f); err != nil {
		return err
	}
	return s.repo.Create(ctx, f)
}

// CreateWithMember creates a family with customerID as its first member and
// returns the new family id.
func (s *Service) CreateWithMember(ctx context.Context, name, description string, customerID int, relationship string) (int, error) {
	f := &Family{Name: name, Description: optional(description)}
	if err := validate(f); err != nil {
		return 0, err
	}
	if err := s.repo.CreateWithMember(ctx, f, customerID, optional(relationship)); err != nil {
		return 0, err
	}
	return f.ID, nil
}

func (s *Service) Get(ctx context.Context, id int, vis db.Visibility) (*Family, error) {
	return s.repo.GetByID(ctx, id, vis)
}

func (s *Service) Update(ctx context.Context, f *Family) error {
	if err := validate(f); err != nil {
		return err
	}
	return s.repo.Update(ctx, f)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) Search(ctx context.Context, q string, vis db.Visibility, limit, offset int) ([]*Family, int, error) {
	return s.repo.Search(ctx, q, vis, limit, offset)
}

// Members lists the family's linked customers filtered by their own
// soft-delete state. The family itself must be active.
func (s *Service) Members(ctx context.Context, familyID int, vis db.Visibility) ([]*Member, error) {
	if _, err := s.repo.GetByID(ctx, familyID, db.ActiveOnly); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, familyID, vis)
}

// AddMember links a customer to an active family. Linking an existing member
// again replaces its relationship label.
func (s *Service) AddMember(ctx context.Context, familyID, customerID int, relationship string) error {
	if customerID <= 0 {
		return fmt.Errorf("%w: customer_id is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, familyID, db.ActiveOnly); err != nil {
		return err
	}
	return s.repo.UpsertMember(ctx, familyID, customerID, optional(relationship))
}

func (s *Service) RemoveMember(ctx context.Context, familyID, customerID int) error {
	return s.repo.RemoveMember(ctx, familyID, customerID)
}

// ActiveMembers resolves the members that can be booked together. A family
// whose members have no open procedure yields an empty slice.
func (s *Service) ActiveMembers(ctx context.Context, familyID int) ([]*ActiveMember, error) {
	if _, err := s.repo.GetByID(ctx, familyID, db.ActiveOnly); err != nil {
		return nil, err
	}
	members, err := s.repo.ActiveMembers(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*ActiveMember{}
	}
	return members, nil
}
