package program

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klasshero/backend/core"
)

var (
	// errors
	ErrNotFound            = errors.New("program not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrRegistrationNotOpen = errors.New("registration is not open for this program")
	ErrNoSpotsAvailable    = errors.New("no spots available for this program")
)

// RegistrationStatus is the derived state of a program's registration window.
type RegistrationStatus string

const (
	RegistrationUpcoming RegistrationStatus = "upcoming"
	RegistrationOpen     RegistrationStatus = "open"
	RegistrationClosed   RegistrationStatus = "closed"
)

type Program struct {
	ID          string `json:"id"`
	ProviderID  string `json:"provider_id"` // User.ID of the provider account
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AgeMin      int    `json:"age_min"`
	AgeMax      int    `json:"age_max"`

	// fee schedule
	WeeklyFee       decimal.Decimal `json:"weekly_fee"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	WeeksCount      int             `json:"weeks_count"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	CardFee         decimal.Decimal `json:"card_fee"`

	// capacity
	SpotsTotal int `json:"spots_total"`
	SpotsTaken int `json:"spots_taken"`

	// registration window; both optional. An unset window means registration
	// is always open, an unset end means the window never closes.
	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// dateOf truncates a time to its date in UTC. Window boundaries are compared
// by calendar date, inclusive on both ends.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RegistrationStatusAt derives the registration window status at time t.
func (p Program) RegistrationStatusAt(t time.Time) RegistrationStatus {
	if p.RegistrationStart == nil && p.RegistrationEnd == nil {
		return RegistrationOpen
	}
	today := dateOf(t)
	if p.RegistrationStart != nil && today.Before(dateOf(*p.RegistrationStart)) {
		return RegistrationUpcoming
	}
	if p.RegistrationEnd != nil && today.After(dateOf(*p.RegistrationEnd)) {
		return RegistrationClosed
	}
	return RegistrationOpen
}

// RegistrationOpenAt reports whether the program accepts new enrollments at time t.
func (p Program) RegistrationOpenAt(t time.Time) bool {
	return p.RegistrationStatusAt(t) == RegistrationOpen
}

// SpotsLeft reports the number of open spots.
func (p Program) SpotsLeft() int {
	if left := p.SpotsTotal - p.SpotsTaken; left > 0 {
		return left
	}
	return 0
}

type Session struct {
	ID        string    `json:"id"`
	ProgramID string    `json:"program_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewProgram contains information needed to create a new Program.
type NewProgram struct {
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description"`
	Category        string          `json:"category" validate:"required"`
	AgeMin          int             `json:"age_min" validate:"omitempty,gte=0"`
	AgeMax          int             `json:"age_max" validate:"omitempty,gtefield=AgeMin"`
	WeeklyFee       decimal.Decimal `json:"weekly_fee" validate:"required"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	WeeksCount      int             `json:"weeks_count" validate:"required,gt=0"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	CardFee         decimal.Decimal `json:"card_fee"`
	SpotsTotal      int             `json:"spots_total" validate:"required,gt=0"`

	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`
}

func (np *NewProgram) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.Category = core.CleanString(np.Category, true /* lower */)

	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	if np.RegistrationStart != nil && np.RegistrationEnd != nil && np.RegistrationEnd.Before(*np.RegistrationStart) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "registration_end", Error: "registration end cannot precede registration start"})
	}
	return nil
}

// UpdateProgram defines what information may be provided to modify an existing Program.
type UpdateProgram struct {
	Name        string `json:"name"`
	Description *string `json:"description"`
	Category    string `json:"category"`

	WeeklyFee       *decimal.Decimal `json:"weekly_fee"`
	RegistrationFee *decimal.Decimal `json:"registration_fee"`
	VATRate         *decimal.Decimal `json:"vat_rate"`
	CardFee         *decimal.Decimal `json:"card_fee"`
	SpotsTotal      *int             `json:"spots_total"`

	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`
}

// NewSession contains information needed to schedule a new Session.
type NewSession struct {
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Location string    `json:"location"`
}

func (ns *NewSession) Validate() error {
	ns.Location = core.CleanString(ns.Location)
	return core.Validate.Struct(ns)
}

type QueryFilter struct {
	ProviderID       string `query:"provider_id"`
	Category         string `query:"category"`
	Search           string `query:"search"`
	RegistrationOpen *bool  `query:"registration_open"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ProviderID == "" && qf.Category == "" && qf.Search == "" && qf.RegistrationOpen == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}
