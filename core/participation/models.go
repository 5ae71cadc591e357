package participation

import (
	"errors"
	"time"

	"github.com/klasshero/backend/core"
)

var (
	// errors
	ErrNotFound          = errors.New("participation record not found")
	ErrInvalidTransition = errors.New("invalid participation status transition")
	ErrActorNotAllowed   = errors.New("actor is not allowed to perform this transition")
)

// Status of a child's attendance at a session.
//
//	scheduled -> checked_in -> checked_out (terminal)
//	scheduled -> absent                    (terminal)
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusAbsent     Status = "absent"
)

var transitions = map[Status][]Status{
	StatusScheduled: {StatusCheckedIn, StatusAbsent},
	StatusCheckedIn: {StatusCheckedOut},
	// StatusCheckedOut and StatusAbsent are terminal
}

// CanTransitionTo reports whether next is a legal transition from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Record tracks one child's attendance at one session.
type Record struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	ChildID      string     `json:"child_id"`
	EnrollmentID string     `json:"enrollment_id"`
	Status       Status     `json:"status"`
	CheckInAt    *time.Time `json:"check_in_at"`
	CheckOutAt   *time.Time `json:"check_out_at"`
	CheckInNote  string     `json:"check_in_note"`
	CheckOutNote string     `json:"check_out_note"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
}

// checkIn transitions the record to checked_in. The record is left untouched
// on failure.
func (r *Record) checkIn(at time.Time, note string) error {
	if !r.Status.CanTransitionTo(StatusCheckedIn) {
		return ErrInvalidTransition
	}
	at = at.UTC()
	r.Status = StatusCheckedIn
	r.CheckInAt = &at
	r.CheckInNote = core.CleanString(note)
	r.UpdatedAt = at
	return nil
}

// checkOut transitions the record to checked_out. The record is left
// untouched on failure.
func (r *Record) checkOut(at time.Time, note string) error {
	if !r.Status.CanTransitionTo(StatusCheckedOut) {
		return ErrInvalidTransition
	}
	at = at.UTC()
	r.Status = StatusCheckedOut
	r.CheckOutAt = &at
	r.CheckOutNote = core.CleanString(note)
	r.UpdatedAt = at
	return nil
}

// markAbsent transitions the record to absent. The record is left untouched
// on failure.
func (r *Record) markAbsent(at time.Time) error {
	if !r.Status.CanTransitionTo(StatusAbsent) {
		return ErrInvalidTransition
	}
	r.Status = StatusAbsent
	r.UpdatedAt = at.UTC()
	return nil
}

// RosterEntry is a Record joined with the child's name for the provider's
// session roster.
type RosterEntry struct {
	Record
	ChildName string `json:"child_name"`
}

// BatchResult is the per-child outcome of a batch check-in; a failed child
// never masks its siblings.
type BatchResult struct {
	ChildID  string
	RecordID string
	Err      error
}
