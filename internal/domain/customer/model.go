package customer

import (
	"errors"
	"strings"
	"time"

	"github.com/gousa/visacrm/pkg/civildate"
)

var (
	ErrNotFound           = errors.New("customer not found")
	ErrDuplicateCI        = errors.New("a customer with that CI number already exists")
	ErrDuplicatePassport  = errors.New("a customer with that passport number already exists")
	errFamilyNameRequired = errors.New("family name is required to create a family group")
)

// Customer is a visa applicant. Optional text fields are nil when unknown;
// blank strings are normalized to nil before storage.
type Customer struct {
	ID                  int            `json:"id"`
	FirstNames          string         `json:"first_names"`
	LastNames           string         `json:"last_names"`
	BirthDate           civildate.Date `json:"birth_date"`
	BirthPlace          *string        `json:"birth_place,omitempty"`
	Nationality         *string        `json:"nationality,omitempty"`
	CINumber            *string        `json:"ci_number,omitempty"`
	PassportNumber      *string        `json:"passport_number,omitempty"`
	PassportIssued      civildate.Date `json:"passport_issued"`
	PassportExpires     civildate.Date `json:"passport_expires"`
	Email               *string        `json:"email,omitempty"`
	MobilePhone         *string        `json:"mobile_phone,omitempty"`
	Facebook            *string        `json:"facebook,omitempty"`
	Instagram           *string        `json:"instagram,omitempty"`
	HomeAddress         *string        `json:"home_address,omitempty"`
	MaritalStatus       *string        `json:"marital_status,omitempty"`
	Profession          *string        `json:"profession,omitempty"`
	CollectionReason    *string        `json:"collection_reason,omitempty"`
	Workplace           *string        `json:"workplace,omitempty"`
	JobTitle            *string        `json:"job_title,omitempty"`
	TentativeTravelDate civildate.Date `json:"tentative_travel_date"`
	USContactName       *string        `json:"us_contact_name,omitempty"`
	USContactAddress    *string        `json:"us_contact_address,omitempty"`
	USContactPhone      *string        `json:"us_contact_phone,omitempty"`
	USContactEmail      *string        `json:"us_contact_email,omitempty"`
	Background          Background     `json:"background"`
	CreatedAt           time.Time      `json:"created_at"`
	ModifiedAt          time.Time      `json:"modified_at"`
	DeletedAt           *time.Time     `json:"deleted_at,omitempty"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstNames + " " + c.LastNames)
}

// Background holds the DS-160 history sections. It is stored as one JSONB
// document; sections left entirely blank are dropped.
type Background struct {
	Spouse      *Spouse `json:"spouse,omitempty"`
	Father      *Parent `json:"father,omitempty"`
	Mother      *Parent `json:"mother,omitempty"`
	CurrentJob  *Job    `json:"current_job,omitempty"`
	PreviousJob *Job    `json:"previous_job,omitempty"`
	Study       *Study  `json:"study,omitempty"`
}

type Spouse struct {
	FullName      string         `json:"full_name,omitempty"`
	BirthDate     civildate.Date `json:"birth_date"`
	BirthPlace    string         `json:"birth_place,omitempty"`
	MarriageStart civildate.Date `json:"marriage_start"`
	MarriageEnd   civildate.Date `json:"marriage_end"`
}

type Parent struct {
	FullName  string         `json:"full_name,omitempty"`
	BirthDate civildate.Date `json:"birth_date"`
}

type Job struct {
	Employer         string         `json:"employer,omitempty"`
	Description      string         `json:"description,omitempty"`
	Address          string         `json:"address,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	SalaryPerception string         `json:"salary_perception,omitempty"`
	Reference        string         `json:"reference,omitempty"`
	StartedOn        civildate.Date `json:"started_on"`
	HiredOn          civildate.Date `json:"hired_on"`
}

type Study struct {
	Institution string         `json:"institution,omitempty"`
	Career      string         `json:"career,omitempty"`
	Address     string         `json:"address,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	StartedOn   civildate.Date `json:"started_on"`
	EndedOn     civildate.Date `json:"ended_on"`
}

func (b *Background) compact() {
	if b.Spouse != nil && *b.Spouse == (Spouse{}) {
		b.Spouse = nil
	}
	if b.Father != nil && *b.Father == (Parent{}) {
		b.Father = nil
	}
	if b.Mother != nil && *b.Mother == (Parent{}) {
		b.Mother = nil
	}
	if b.CurrentJob != nil && *b.CurrentJob == (Job{}) {
		b.CurrentJob = nil
	}
	if b.PreviousJob != nil && *b.PreviousJob == (Job{}) {
		b.PreviousJob = nil
	}
	if b.Study != nil && *b.Study == (Study{}) {
		b.Study = nil
	}
}

// normalize trims text and turns blank optional fields into nil.
func (c *Customer) normalize() {
	c.FirstNames = strings.TrimSpace(c.FirstNames)
	c.LastNames = strings.TrimSpace(c.LastNames)
	for _, p := range []**string{
		&c.BirthPlace, &c.Nationality, &c.CINumber, &c.PassportNumber, &c.Email,
		&c.MobilePhone, &c.Facebook, &c.Instagram, &c.HomeAddress, &c.MaritalStatus,
		&c.Profession, &c.CollectionReason, &c.Workplace, &c.JobTitle,
		&c.USContactName, &c.USContactAddress, &c.USContactPhone, &c.USContactEmail,
	} {
		*p = blankToNil(*p)
	}
	c.Background.compact()
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// CreateRequest is a customer plus an optional family enrolment done in the
// same call.
type CreateRequest struct {
	Customer
	Family *Enrolment `json:"family,omitempty"`
}

// Enrolment either creates a new family group named Name or joins FamilyID.
type Enrolment struct {
	Create       bool   `json:"create"`
	Name         string `json:"name,omitempty"`
	FamilyID     int    `json:"family_id,omitempty"`
	Relationship string `json:"relationship"`
}

// CreateResult reports the customer and, when enrolment succeeded, the family id.
type CreateResult struct {
	Customer    *Customer `json:"customer"`
	FamilyID    int       `json:"family_id,omitempty"`
	FamilyError string    `json:"family_error,omitempty"`
}

type CIAvailability struct {
	CINumber  string `json:"ci_number"`
	Available bool   `json:"available"`
}
