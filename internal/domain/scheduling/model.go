package scheduling

import (
	"errors"
	"time"

	"github.com/gousa/visacrm/internal/platform/db"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrProcedureNotFound = errors.New("procedure not found or deleted")
	ErrUnknownType       = errors.New("appointment type does not exist")
	ErrFamilyNotFound    = errors.New("family not found")
)

// Status is the appointment lifecycle state as stored.
type Status string

const (
	StatusScheduled   Status = "Programada"
	StatusCompleted   Status = "Completada"
	StatusCancelled   Status = "Cancelada"
	StatusRescheduled Status = "Reprogramada"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of a single appointment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pendiente"
	PaymentPaid    PaymentStatus = "Pagado"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid
}

// Business policy for combo scheduling.
const (
	MinIntervalMinutes     = 1
	MaxIntervalMinutes     = 60
	DefaultIntervalMinutes = 5

	DefaultStatus        = StatusScheduled
	DefaultPaymentStatus = PaymentPending

	// FamilyNoteTag marks appointments created by combo scheduling.
	FamilyNoteTag = "Cita familiar"
)

// Appointment is a cita. It belongs to a procedure; customer fields are
// filled on reads.
type Appointment struct {
	ID            int           `json:"id"`
	ProcedureID   int           `json:"procedure_id"`
	CustomerID    int           `json:"customer_id,omitempty"`
	CustomerName  string        `json:"customer_name,omitempty"`
	TypeID        int           `json:"type_id"`
	TypeName      string        `json:"type_name,omitempty"`
	ScheduledAt   time.Time     `json:"scheduled_at"`
	Place         *string       `json:"place,omitempty"`
	Cost          Money         `json:"cost"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        Status        `json:"status"`
	Notes         *string       `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ModifiedAt    time.Time     `json:"modified_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}

// Filter narrows an appointment search. Zero fields do not filter.
type Filter struct {
	ProcedureID int
	CustomerID  int
	From        time.Time
	To          time.Time
	Status      Status
	Visibility  db.Visibility
}
