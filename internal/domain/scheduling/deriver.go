package scheduling

import "time"

// Member is a family member eligible for combo scheduling, paired with the
// procedure the appointment will belong to.
type Member struct {
	CustomerID    int     `json:"customer_id"`
	ProcedureID   int     `json:"procedure_id"`
	DisplayName   string  `json:"display_name"`
	ProcedureType string  `json:"procedure_type"`
	ProcessState  string  `json:"process_state,omitempty"`
	Relationship  *string `json:"relationship,omitempty"`
	Email         *string `json:"-"`
}

// Slot is one member's derived appointment time.
type Slot struct {
	Member
	ScheduledAt time.Time `json:"scheduled_at"`
}

// DeriveSlots assigns start + i*interval to the i-th member, keeping the
// caller's order. intervalMinutes must already be within
// [MinIntervalMinutes, MaxIntervalMinutes].
func DeriveSlots(members []Member, start time.Time, intervalMinutes int) []Slot {
	slots := make([]Slot, len(members))
	step := time.Duration(intervalMinutes) * time.Minute
	for i, m := range members {
		slots[i] = Slot{Member: m, ScheduledAt: start.Add(time.Duration(i) * step)}
	}
	return slots
}
