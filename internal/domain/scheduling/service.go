package scheduling

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gousa/visacrm/internal/platform/auth"
	"github.com/gousa/visacrm/internal/platform/db"
	"github.com/gousa/visacrm/internal/platform/notify"
)

// MemberResolver lists a family's members that have an open procedure, in
// the order they joined. An unknown or deleted family is ErrFamilyNotFound.
type MemberResolver interface {
	ActiveMembers(ctx context.Context, familyID int) ([]Member, error)
}

type Service struct {
	repo      Repository
	resolver  MemberResolver
	persister *BatchPersister
	notifier  notify.Notifier
	loc       *time.Location
	logger    zerolog.Logger

	noticeTimeout time.Duration
	notices       sync.WaitGroup
}

// NewService wires appointment storage and combo scheduling. notifier may be
// nil; loc interprets start times sent without an offset.
func NewService(repo Repository, resolver MemberResolver, notifier notify.Notifier, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		resolver:  resolver,
		persister: NewBatchPersister(repo, logger),
		notifier:  notifier,
		loc:       loc,
		logger:    logger,

		noticeTimeout: notify.SendTimeout,
	}
}

var startLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// ParseStart reads an RFC3339 timestamp, or a local "YYYY-MM-DDTHH:MM" as sent
// by datetime-local inputs, interpreted in loc.
func ParseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("start must be RFC3339 or YYYY-MM-DDTHH:MM")
}

// -- Single appointments --

// AppointmentInput is the body of a single appointment write. ScheduledAt
// takes the same formats as a combo start.
type AppointmentInput struct {
	ProcedureID   int           `json:"procedure_id"`
	TypeID        int           `json:"type_id"`
	ScheduledAt   string        `json:"scheduled_at"`
	Place         *string       `json:"place"`
	Cost          Money         `json:"cost"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        Status        `json:"status"`
	Notes         *string       `json:"notes"`
}

// Appointment converts in, reporting an unreadable time as a ValidationError.
func (s *Service) Appointment(in AppointmentInput) (*Appointment, error) {
	a := &Appointment{
		ProcedureID:   in.ProcedureID,
		TypeID:        in.TypeID,
		Place:         in.Place,
		Cost:          in.Cost,
		PaymentStatus: in.PaymentStatus,
		Status:        in.Status,
		Notes:         in.Notes,
	}
	if strings.TrimSpace(in.ScheduledAt) == "" {
		return a, nil
	}
	t, err := ParseStart(in.ScheduledAt, s.loc)
	if err != nil {
		v := &ValidationError{}
		v.add("scheduled_at", "%s", err.Error())
		return nil, v
	}
	a.ScheduledAt = t
	return a, nil
}

func normalizeAppointment(a *Appointment) {
	if a.Status == "" {
		a.Status = DefaultStatus
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = DefaultPaymentStatus
	}
	for _, p := range []**string{&a.Place, &a.Notes} {
		if *p != nil {
			if t := strings.TrimSpace(**p); t == "" {
				*p = nil
			} else {
				*p = &t
			}
		}
	}
}

func validateAppointment(a *Appointment) error {
	v := &ValidationError{}
	if a.ProcedureID <= 0 {
		v.add("procedure_id", "procedure is required")
	}
	if a.TypeID <= 0 {
		v.add("type_id", "appointment type is required")
	}
	if a.ScheduledAt.IsZero() {
		v.add("scheduled_at", "date and time are required")
	}
	if !a.Status.Valid() {
		v.add("status", "unknown status %q", a.Status)
	}
	if !a.PaymentStatus.Valid() {
		v.add("payment_status", "unknown payment status %q", a.PaymentStatus)
	}
	if a.Cost < 0 || a.Cost > MaxMoney {
		v.add("cost", "cost must be between 0.00 and %s", MaxMoney)
	}
	return v.orNil()
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	normalizeAppointment(a)
	if err := validateAppointment(a); err != nil {
		return err
	}
	return s.repo.Create(ctx, a, auth.ActorFromContext(ctx))
}

func (s *Service) Get(ctx context.Context, id int, vis db.Visibility) (*Appointment, error) {
	return s.repo.GetByID(ctx, id, vis)
}

// Update changes an appointment in place; it stays on its procedure.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	current, err := s.repo.GetByID(ctx, a.ID, db.ActiveOnly)
	if err != nil {
		return err
	}
	a.ProcedureID = current.ProcedureID
	normalizeAppointment(a)
	if err := validateAppointment(a); err != nil {
		return err
	}
	return s.repo.Update(ctx, a, auth.ActorFromContext(ctx))
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.SoftDelete(ctx, id, auth.ActorFromContext(ctx))
}

func (s *Service) Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		v := &ValidationError{}
		v.add("status", "unknown status %q", f.Status)
		return nil, 0, v
	}
	return s.repo.Search(ctx, f, limit, offset)
}

// -- Combo scheduling --

// ComboRequest books one appointment per selected family member. A nil
// CustomerIDs selects every active member in family order; otherwise the
// given order is the booking order.
type ComboRequest struct {
	FamilyID          int           `json:"family_id"`
	CustomerIDs       []int         `json:"customer_ids"`
	Start             string        `json:"start"`
	IntervalMinutes   *int          `json:"interval_minutes"`
	AppointmentTypeID int           `json:"appointment_type_id"`
	Place             *string       `json:"place"`
	Cost              Money         `json:"cost"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	Status            Status        `json:"status"`
	Notes             *string       `json:"notes"`
}

// Preview is what a combo booking would create, without writing anything.
type Preview struct {
	FamilyID        int      `json:"family_id"`
	Candidates      []Member `json:"candidates"`
	Selected        []int    `json:"selected"`
	IntervalMinutes int      `json:"interval_minutes"`
	Slots           []Slot   `json:"slots"`
}

func (v *ValidationError) has(field string) bool {
	for _, f := range v.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// merge adds err's fields unless a field is already reported.
func (v *ValidationError) merge(err error) {
	var other *ValidationError
	if !errors.As(err, &other) {
		return
	}
	for _, f := range other.Fields {
		if !v.has(f.Field) {
			v.Fields = append(v.Fields, f)
		}
	}
}

// draft resolves the family fresh and applies the request's selection. The
// resolver is called on every request; membership is never cached.
func (s *Service) draft(ctx context.Context, req *ComboRequest, submit bool) (SchedulingDraft, error) {
	v := &ValidationError{}
	if req.FamilyID <= 0 {
		v.add("family_id", "a family must be selected")
	}
	if submit {
		if req.AppointmentTypeID <= 0 {
			v.add("appointment_type_id", "an appointment type must be selected")
		}
		if req.Status != "" && !req.Status.Valid() {
			v.add("status", "unknown status %q", req.Status)
		}
		if req.PaymentStatus != "" && !req.PaymentStatus.Valid() {
			v.add("payment_status", "unknown payment status %q", req.PaymentStatus)
		}
		if req.Cost < 0 || req.Cost > MaxMoney {
			v.add("cost", "cost must be between 0.00 and %s", MaxMoney)
		}
	}

	var start time.Time
	if strings.TrimSpace(req.Start) != "" {
		t, err := ParseStart(req.Start, s.loc)
		if err != nil {
			v.add("start", "%s", err.Error())
		}
		start = t
	}

	seen := make(map[int]bool, len(req.CustomerIDs))
	for _, id := range req.CustomerIDs {
		if seen[id] {
			v.add("customer_ids", "customer %d is selected more than once", id)
		}
		seen[id] = true
	}

	if v.has("family_id") {
		return SchedulingDraft{}, v
	}

	members, err := s.resolver.ActiveMembers(ctx, req.FamilyID)
	if err != nil {
		return SchedulingDraft{}, err
	}

	d := NewDraft().WithFamily(req.FamilyID, members).WithStart(start)
	if req.IntervalMinutes != nil {
		d = d.WithInterval(*req.IntervalMinutes)
	}
	if req.CustomerIDs != nil {
		d = d.DeselectAll()
		for _, id := range req.CustomerIDs {
			if _, ok := d.candidate(id); !ok {
				v.add("customer_ids", "customer %d has no open procedure in family %d", id, req.FamilyID)
				continue
			}
			if !containsID(d.selected, id) {
				d = d.Toggle(id)
			}
		}
	}

	if submit {
		v.merge(d.Validate())
	} else {
		_, perr := d.Preview()
		v.merge(perr)
	}
	if err := v.orNil(); err != nil {
		return SchedulingDraft{}, err
	}
	return d, nil
}

func containsID(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// PreviewCombo derives the slots a combo booking would create.
func (s *Service) PreviewCombo(ctx context.Context, req *ComboRequest) (*Preview, error) {
	d, err := s.draft(ctx, req, false)
	if err != nil {
		return nil, err
	}
	slots, err := d.Preview()
	if err != nil {
		return nil, err
	}
	return &Preview{
		FamilyID:        d.FamilyID(),
		Candidates:      d.Candidates(),
		Selected:        d.Selected(),
		IntervalMinutes: d.IntervalMinutes(),
		Slots:           slots,
	}, nil
}

// CreateCombo validates, resolves members fresh, derives the slots and writes
// them as one batch. The error return is reserved for validation and
// resolution failures; storage failures come back in the BatchResult.
func (s *Service) CreateCombo(ctx context.Context, req *ComboRequest) (BatchResult, error) {
	d, err := s.draft(ctx, req, true)
	if err != nil {
		return BatchResult{}, err
	}

	slots := DeriveSlots(d.SelectedMembers(), d.Start(), d.IntervalMinutes())
	items := make([]BatchItem, len(slots))
	for i, sl := range slots {
		items[i] = BatchItem{ProcedureID: sl.ProcedureID, ScheduledAt: sl.ScheduledAt}
	}

	result := s.persister.Persist(ctx, items, BatchAttributes{
		AppointmentTypeID: req.AppointmentTypeID,
		Place:             req.Place,
		Cost:              req.Cost,
		PaymentStatus:     req.PaymentStatus,
		Status:            req.Status,
		Notes:             req.Notes,
	}, auth.ActorFromContext(ctx))
	if !result.Success {
		return result, nil
	}

	for i, a := range result.Appointments {
		a.CustomerID = slots[i].CustomerID
		a.CustomerName = slots[i].DisplayName
	}
	s.sendNotices(ctx, slots, result.Appointments)
	return result, nil
}

func (s *Service) sendNotices(ctx context.Context, slots []Slot, appts []*Appointment) {
	if s.notifier == nil {
		return
	}
	var notices []notify.AppointmentNotice
	for i, a := range appts {
		m := slots[i].Member
		if m.Email == nil || *m.Email == "" {
			continue
		}
		place := ""
		if a.Place != nil {
			place = *a.Place
		}
		notices = append(notices, notify.AppointmentNotice{
			AppointmentID: a.ID,
			CustomerName:  m.DisplayName,
			Email:         *m.Email,
			ProcedureType: m.ProcedureType,
			ScheduledAt:   a.ScheduledAt,
			Place:         place,
			Family:        true,
		})
	}
	if len(notices) == 0 {
		return
	}
	// The batch is committed; delivery outlives the request.
	ctx = context.WithoutCancel(ctx)
	s.notices.Add(1)
	go func() {
		defer s.notices.Done()
		sent := notify.Dispatch(ctx, s.notifier, notices, s.noticeTimeout, s.logger)
		s.logger.Debug().Int("sent", sent).Int("notices", len(notices)).Msg("combo appointment notices dispatched")
	}()
}

// WaitNotices blocks until every queued notice has been attempted or ctx ends.
func (s *Service) WaitNotices(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notices.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
