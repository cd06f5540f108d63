package catalog

import "errors"

var (
	ErrNotFound    = errors.New("catalog entry not found")
	ErrDuplicate   = errors.New("catalog entry already exists")
	ErrUnknownKind = errors.New("unknown catalog")
)

// Kind names one of the four lookup tables the agency maintains.
type Kind string

const (
	ProcedureTypes   Kind = "procedure-types"
	ProcessStates    Kind = "process-states"
	PaymentStates    Kind = "payment-states"
	AppointmentTypes Kind = "appointment-types"
)

var Kinds = []Kind{ProcedureTypes, ProcessStates, PaymentStates, AppointmentTypes}

type table struct {
	name   string
	column string
}

var tables = map[Kind]table{
	ProcedureTypes:   {"cat_tipos_tramite", "nombre_tipo"},
	ProcessStates:    {"cat_estados_proceso", "nombre_estado"},
	PaymentStates:    {"cat_estados_pago", "nombre_estado"},
	AppointmentTypes: {"cat_tipos_cita", "nombre_tipo"},
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := tables[k]; !ok {
		return "", ErrUnknownKind
	}
	return k, nil
}

// Entry is one catalog row. Terminal is only meaningful for process states:
// procedures in a terminal state no longer count as active.
type Entry struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Terminal *bool  `json:"terminal,omitempty"`
}
