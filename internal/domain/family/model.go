package family

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("family not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrMemberNotFound   = errors.New("customer is not a member of this family")
	ErrInvalid          = errors.New("invalid family")
)

type Family struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	MemberCount int        `json:"member_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  time.Time  `json:"modified_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Member is a customer linked to a family with a relationship label
// (parentesco) such as "Padre" or "Hija".
type Member struct {
	FamilyID     int       `json:"family_id"`
	CustomerID   int       `json:"customer_id"`
	FirstNames   string    `json:"first_names"`
	LastNames    string    `json:"last_names"`
	CINumber     *string   `json:"ci_number,omitempty"`
	Relationship *string   `json:"relationship,omitempty"`
	LinkedAt     time.Time `json:"linked_at"`
}

// ActiveMember is a family member paired with the procedure that combo
// scheduling books against: the newest one whose process state is not terminal.
type ActiveMember struct {
	CustomerID    int     `json:"customer_id"`
	FirstNames    string  `json:"first_names"`
	LastNames     string  `json:"last_names"`
	Email         *string `json:"email,omitempty"`
	Relationship  *string `json:"relationship,omitempty"`
	ProcedureID   int     `json:"procedure_id"`
	ProcedureType string  `json:"procedure_type"`
	ProcessState  string  `json:"process_state"`
}

type MemberRequest struct {
	CustomerID   int    `json:"customer_id"`
	Relationship string `json:"relationship"`
}
