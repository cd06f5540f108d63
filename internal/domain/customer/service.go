package customer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gousa/visacrm/internal/platform/db"
)

// ErrInvalid wraps every input validation failure.
var ErrInvalid = errors.New("invalid customer")

// FamilyEnroller links a freshly created customer to a family group.
type FamilyEnroller interface {
	CreateWithMember(ctx context.Context, name, description string, customerID int, relationship string) (int, error)
	AddMember(ctx context.Context, familyID, customerID int, relationship string) error
}

type Service struct {
	repo     Repository
	families FamilyEnroller
	logger   zerolog.Logger
}

func NewService(repo Repository, families FamilyEnroller, logger zerolog.Logger) *Service {
	return &Service{repo: repo, families: families, logger: logger}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func validate(c *Customer) error {
	if c.FirstNames == "" {
		return invalid("first_names is required")
	}
	if c.LastNames == "" {
		return invalid("last_names is required")
	}
	if len(c.FirstNames) > 255 || len(c.LastNames) > 255 {
		return invalid("names must be at most 255 characters")
	}
	if c.MobilePhone == nil {
		return invalid("mobile_phone is required")
	}
	if c.Email != nil && !validEmail(*c.Email) {
		return invalid("email %q is not a valid address", *c.Email)
	}
	if c.USContactEmail != nil && !validEmail(*c.USContactEmail) {
		return invalid("us_contact_email %q is not a valid address", *c.USContactEmail)
	}
	if !c.PassportIssued.IsZero() && !c.PassportExpires.IsZero() && !c.PassportExpires.After(c.PassportIssued) {
		return invalid("passport_expires must be after passport_issued")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validateEnrolment(e *Enrolment) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Relationship = strings.TrimSpace(e.Relationship)
	if e.Relationship == "" {
		return invalid("family relationship is required")
	}
	if e.Create && e.Name == "" {
		return fmt.Errorf("%w: %s", ErrInvalid, errFamilyNameRequired)
	}
	if !e.Create && e.FamilyID <= 0 {
		return invalid("family_id is required to join an existing family")
	}
	return nil
}

func (s *Service) checkCI(ctx context.Context, c *Customer) error {
	if c.CINumber == nil {
		return nil
	}
	taken, err := s.repo.CIInUse(ctx, *c.CINumber, c.ID, db.ActiveOnly)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateCI
	}
	return nil
}

// Create stores the customer and then performs the optional enrolment.
// Enrolment failures are logged and reported in the result without undoing
// the customer.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	c := &req.Customer
	c.ID = 0
	c.normalize()
	if err := validate(c); err != nil {
		return nil, err
	}
	if req.Family != nil {
		if err := validateEnrolment(req.Family); err != nil {
			return nil, err
		}
	}
	if err := s.checkCI(ctx, c); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	result := &CreateResult{Customer: c}
	if req.Family == nil || s.families == nil {
		return result, nil
	}

	familyID, err := s.enrol(ctx, c, req.Family)
	if err != nil {
		s.logger.Warn().Err(err).Int("customer_id", c.ID).Msg("family enrolment failed")
		result.FamilyError = err.Error()
		return result, nil
	}
	result.FamilyID = familyID
	return result, nil
}

func (s *Service) enrol(ctx context.Context, c *Customer, e *Enrolment) (int, error) {
	if e.Create {
		desc := fmt.Sprintf("Grupo familiar creado para %s %s", c.FirstNames, c.LastNames)
		return s.families.CreateWithMember(ctx, e.Name, desc, c.ID, e.Relationship)
	}
	if err := s.families.AddMember(ctx, e.FamilyID, c.ID, e.Relationship); err != nil {
		return 0, err
	}
	return e.FamilyID, nil
}

func (s *Service) Get(ctx context.Context, id int, vis db.Visibility) (*Customer, error) {
	return s.repo.GetByID(ctx, id, vis)
}

func (s *Service) Update(ctx context.Context, c *Customer) error {
	if c.ID <= 0 {
		return invalid("id is required")
	}
	c.normalize()
	if err := validate(c); err != nil {
		return err
	}
	if err := s.checkCI(ctx, c); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) Search(ctx context.Context, q string, vis db.Visibility, limit, offset int) ([]*Customer, int, error) {
	return s.repo.Search(ctx, q, vis, limit, offset)
}

// CheckCI reports whether ci is free among the customers vis selects. The
// answer is advisory; Create and Update check again before writing.
func (s *Service) CheckCI(ctx context.Context, ci string, excludeID int, vis db.Visibility) (*CIAvailability, error) {
	ci = strings.TrimSpace(ci)
	if ci == "" {
		return nil, invalid("ci is required")
	}
	taken, err := s.repo.CIInUse(ctx, ci, excludeID, vis)
	if err != nil {
		return nil, err
	}
	return &CIAvailability{CINumber: ci, Available: !taken}, nil
}
