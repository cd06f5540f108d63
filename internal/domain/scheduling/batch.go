package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BatchItem is one appointment to write: a procedure and its derived time.
type BatchItem struct {
	ProcedureID int       `json:"procedure_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// BatchAttributes are shared by every appointment of one batch.
type BatchAttributes struct {
	AppointmentTypeID int
	Place             *string
	Cost              Money
	PaymentStatus     PaymentStatus
	Status            Status
	Notes             *string
}

// BatchResult is the tagged outcome of a batch. On failure no appointment of
// the batch exists.
type BatchResult struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	Appointments []*Appointment `json:"appointments,omitempty"`
}

// BatchStore writes all appointments of a batch in one transaction, in slice
// order, together with one audit row per procedure.
type BatchStore interface {
	CreateBatch(ctx context.Context, appts []*Appointment, actor string) error
}

// FamilyNotes tags combo-created notes: "<notes> (Cita familiar)" with notes
// kept as typed, or just "Cita familiar" when notes is nil or empty.
func FamilyNotes(notes *string) string {
	if notes == nil || *notes == "" {
		return FamilyNoteTag
	}
	return *notes + " (" + FamilyNoteTag + ")"
}

type BatchPersister struct {
	store  BatchStore
	logger zerolog.Logger
}

func NewBatchPersister(store BatchStore, logger zerolog.Logger) *BatchPersister {
	return &BatchPersister{store: store, logger: logger}
}

// Persist creates one appointment per item, all or nothing. An empty batch
// succeeds without touching storage. Storage failures and panics come back as
// a failed result, never as an error.
func (p *BatchPersister) Persist(ctx context.Context, items []BatchItem, attrs BatchAttributes, actor string) (result BatchResult) {
	if len(items) == 0 {
		return BatchResult{Success: true, Appointments: []*Appointment{}}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Int("items", len(items)).Msg("appointment batch panicked")
			result = BatchResult{Success: false, Error: fmt.Sprintf("could not create appointments: %v", r)}
		}
	}()

	status := attrs.Status
	if status == "" {
		status = DefaultStatus
	}
	payment := attrs.PaymentStatus
	if payment == "" {
		payment = DefaultPaymentStatus
	}
	notes := FamilyNotes(attrs.Notes)
	var place *string
	if attrs.Place != nil {
		if trimmed := strings.TrimSpace(*attrs.Place); trimmed != "" {
			place = &trimmed
		}
	}

	appts := make([]*Appointment, len(items))
	for i, it := range items {
		n := notes
		appts[i] = &Appointment{
			ProcedureID:   it.ProcedureID,
			TypeID:        attrs.AppointmentTypeID,
			ScheduledAt:   it.ScheduledAt,
			Place:         place,
			Cost:          attrs.Cost,
			PaymentStatus: payment,
			Status:        status,
			Notes:         &n,
		}
	}

	if err := p.store.CreateBatch(ctx, appts, actor); err != nil {
		p.logger.Warn().Err(err).Int("items", len(items)).Msg("appointment batch failed")
		return BatchResult{Success: false, Error: "could not create appointments: " + err.Error()}
	}
	p.logger.Info().Int("items", len(items)).Msg("appointment batch created")
	return BatchResult{Success: true, Appointments: appts}
}
