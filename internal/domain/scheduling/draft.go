package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// FieldError is one failed rule of a draft or request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rule a draft or request breaks. Nothing is
// written while one is outstanding.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid scheduling request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// SchedulingDraft is the state of a combo booking being put together. Every
// method returns a new draft; a draft is never changed in place.
type SchedulingDraft struct {
	familyID   int
	candidates []Member
	selected   []int
	start      time.Time
	interval   int
}

func NewDraft() SchedulingDraft {
	return SchedulingDraft{interval: DefaultIntervalMinutes}
}

func (d SchedulingDraft) FamilyID() int        { return d.familyID }
func (d SchedulingDraft) Start() time.Time     { return d.start }
func (d SchedulingDraft) IntervalMinutes() int { return d.interval }

func (d SchedulingDraft) Candidates() []Member {
	return append([]Member(nil), d.candidates...)
}

// Selected returns the selected customer ids in the order they were toggled on.
func (d SchedulingDraft) Selected() []int {
	return append([]int(nil), d.selected...)
}

func (d SchedulingDraft) clone() SchedulingDraft {
	d.candidates = append([]Member(nil), d.candidates...)
	d.selected = append([]int(nil), d.selected...)
	return d
}

func (d SchedulingDraft) candidate(customerID int) (Member, bool) {
	for _, m := range d.candidates {
		if m.CustomerID == customerID {
			return m, true
		}
	}
	return Member{}, false
}

// WithFamily switches to another family and selects all of its candidates in
// the order given.
func (d SchedulingDraft) WithFamily(familyID int, candidates []Member) SchedulingDraft {
	n := d.clone()
	n.familyID = familyID
	n.candidates = append([]Member(nil), candidates...)
	return n.SelectAll()
}

// Toggle selects customerID at the end of the selection, or removes it when
// already selected. Customers that are not candidates are ignored.
func (d SchedulingDraft) Toggle(customerID int) SchedulingDraft {
	if _, ok := d.candidate(customerID); !ok {
		return d
	}
	n := d.clone()
	for i, id := range n.selected {
		if id == customerID {
			n.selected = append(n.selected[:i], n.selected[i+1:]...)
			return n
		}
	}
	n.selected = append(n.selected, customerID)
	return n
}

// SelectAll selects every candidate in candidate order.
func (d SchedulingDraft) SelectAll() SchedulingDraft {
	n := d.clone()
	n.selected = make([]int, len(n.candidates))
	for i, m := range n.candidates {
		n.selected[i] = m.CustomerID
	}
	return n
}

func (d SchedulingDraft) DeselectAll() SchedulingDraft {
	n := d.clone()
	n.selected = nil
	return n
}

func (d SchedulingDraft) WithStart(start time.Time) SchedulingDraft {
	n := d.clone()
	n.start = start
	return n
}

func (d SchedulingDraft) WithInterval(minutes int) SchedulingDraft {
	n := d.clone()
	n.interval = minutes
	return n
}

// SelectedMembers returns the selected candidates in selection order.
func (d SchedulingDraft) SelectedMembers() []Member {
	members := make([]Member, 0, len(d.selected))
	for _, id := range d.selected {
		if m, ok := d.candidate(id); ok {
			members = append(members, m)
		}
	}
	return members
}

func (d SchedulingDraft) timingErrors(v *ValidationError) {
	if d.start.IsZero() {
		v.add("start", "start time is required")
	}
	if d.interval < MinIntervalMinutes || d.interval > MaxIntervalMinutes {
		v.add("interval_minutes", "interval must be between %d and %d minutes, got %d",
			MinIntervalMinutes, MaxIntervalMinutes, d.interval)
	}
}

// Validate reports every rule the draft breaks before it can be submitted.
func (d SchedulingDraft) Validate() error {
	v := &ValidationError{}
	if d.familyID <= 0 {
		v.add("family_id", "a family must be selected")
	}
	if len(d.selected) == 0 {
		v.add("customer_ids", "at least one member must be selected")
	}
	d.timingErrors(v)
	return v.orNil()
}

// Preview derives the slots for the current selection. An empty selection
// yields no slots; invalid timing yields a ValidationError and derives nothing.
func (d SchedulingDraft) Preview() ([]Slot, error) {
	v := &ValidationError{}
	d.timingErrors(v)
	if err := v.orNil(); err != nil {
		return nil, err
	}
	return DeriveSlots(d.SelectedMembers(), d.start, d.interval), nil
}
