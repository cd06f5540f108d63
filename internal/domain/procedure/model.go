package procedure

import (
	"errors"
	"time"

	"github.com/gousa/visacrm/pkg/civildate"
)

var (
	ErrNotFound         = errors.New("procedure not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrUnknownCatalog   = errors.New("procedure type, process state or payment state does not exist")
	ErrInvalid          = errors.New("invalid procedure")
)

// Procedure is a trámite: one visa application handled for one customer.
// The catalog names are filled on reads.
type Procedure struct {
	ID             int            `json:"id"`
	CustomerID     int            `json:"customer_id"`
	AssignedUser   *string        `json:"assigned_user,omitempty"`
	TypeID         int            `json:"type_id"`
	TypeName       string         `json:"type_name,omitempty"`
	ProcessStateID int            `json:"process_state_id"`
	ProcessState   string         `json:"process_state,omitempty"`
	Terminal       bool           `json:"terminal"`
	PaymentStateID int            `json:"payment_state_id"`
	PaymentState   string         `json:"payment_state,omitempty"`
	DS160Code      *string        `json:"ds160_code,omitempty"`
	CourierCode    *string        `json:"courier_code,omitempty"`
	VisaNumber     *string        `json:"visa_number,omitempty"`
	VisaIssued     civildate.Date `json:"visa_issued"`
	VisaExpires    civildate.Date `json:"visa_expires"`
	Notes          *string        `json:"notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ModifiedAt     time.Time      `json:"modified_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

// LogEntry is one row of a procedure's audit trail.
type LogEntry struct {
	ID          int       `json:"id"`
	ProcedureID int       `json:"procedure_id"`
	User        *string   `json:"user,omitempty"`
	Action      string    `json:"action"`
	At          time.Time `json:"at"`
}
