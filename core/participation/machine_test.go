package participation

import (
	"testing"
	"time"
)

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusScheduled, StatusCheckedIn, true},
		{StatusScheduled, StatusAbsent, true},
		{StatusScheduled, StatusCheckedOut, false},
		{StatusCheckedIn, StatusCheckedOut, true},
		{StatusCheckedIn, StatusAbsent, false},
		{StatusCheckedIn, StatusScheduled, false},
		{StatusCheckedOut, StatusCheckedIn, false},
		{StatusCheckedOut, StatusScheduled, false},
		{StatusAbsent, StatusCheckedIn, false},
		{StatusAbsent, StatusCheckedOut, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, terminal := range map[Status]bool{
		StatusScheduled:  false,
		StatusCheckedIn:  false,
		StatusCheckedOut: true,
		StatusAbsent:     true,
	} {
		if got := status.Terminal(); got != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, terminal)
		}
	}
}

func TestRecordCheckIn(t *testing.T) {
	now := time.Now()

	rec := Record{Status: StatusScheduled}
	if err := rec.checkIn(now, "dropped off by mom"); err != nil {
		t.Fatalf("checkIn() failed: %v", err)
	}
	if rec.Status != StatusCheckedIn {
		t.Errorf("Status = %v, want %v", rec.Status, StatusCheckedIn)
	}
	if rec.CheckInAt == nil || !rec.CheckInAt.Equal(now.UTC()) {
		t.Errorf("CheckInAt = %v, want %v", rec.CheckInAt, now.UTC())
	}
	if rec.CheckInNote != "dropped off by mom" {
		t.Errorf("CheckInNote = %q", rec.CheckInNote)
	}
}

func TestRecordCheckOut(t *testing.T) {
	now := time.Now()

	rec := Record{Status: StatusScheduled}
	if err := rec.checkOut(now, ""); err != ErrInvalidTransition {
		t.Fatalf("checkOut() from scheduled error = %v, want %v", err, ErrInvalidTransition)
	}

	_ = rec.checkIn(now, "")
	if err := rec.checkOut(now.Add(2*time.Hour), "picked up"); err != nil {
		t.Fatalf("checkOut() failed: %v", err)
	}
	if rec.Status != StatusCheckedOut {
		t.Errorf("Status = %v, want %v", rec.Status, StatusCheckedOut)
	}
	if rec.CheckOutAt == nil {
		t.Error("CheckOutAt not set")
	}
}

// terminal records must reject every transition attempt without mutating
// status or timestamps
func TestRecordTerminalStatesImmutable(t *testing.T) {
	now := time.Now()
	in := now.UTC()
	out := now.Add(2 * time.Hour).UTC()

	checkedOut := Record{Status: StatusCheckedOut, CheckInAt: &in, CheckOutAt: &out}
	absent := Record{Status: StatusAbsent}

	for name, rec := range map[string]Record{"checked_out": checkedOut, "absent": absent} {
		t.Run(name, func(t *testing.T) {
			orig := rec

			if err := rec.checkIn(now, "x"); err != ErrInvalidTransition {
				t.Errorf("checkIn() error = %v, want %v", err, ErrInvalidTransition)
			}
			if err := rec.checkOut(now, "x"); err != ErrInvalidTransition {
				t.Errorf("checkOut() error = %v, want %v", err, ErrInvalidTransition)
			}
			if err := rec.markAbsent(now); err != ErrInvalidTransition {
				t.Errorf("markAbsent() error = %v, want %v", err, ErrInvalidTransition)
			}

			if rec.Status != orig.Status {
				t.Errorf("Status mutated: %v -> %v", orig.Status, rec.Status)
			}
			if rec.CheckInAt != orig.CheckInAt || rec.CheckOutAt != orig.CheckOutAt {
				t.Error("timestamps mutated on failed transition")
			}
		})
	}
}

func TestRecordMarkAbsent(t *testing.T) {
	rec := Record{Status: StatusScheduled}
	if err := rec.markAbsent(time.Now()); err != nil {
		t.Fatalf("markAbsent() failed: %v", err)
	}
	if rec.Status != StatusAbsent {
		t.Errorf("Status = %v, want %v", rec.Status, StatusAbsent)
	}
	if rec.CheckInAt != nil || rec.CheckOutAt != nil {
		t.Error("absent record must not carry check-in/out timestamps")
	}
}
