package family

import (
	"errors"
	"time"

	"github.com/klasshero/backend/core"
)

var (
	// errors
	ErrNotFound        = errors.New("child not found")
	ErrNoParentProfile = errors.New("no parent profile for this account")
	ErrProfileExists   = errors.New("a parent profile already exists for this account")
	ErrUnknownTier     = errors.New("unknown subscription tier")
)

// Tier is a parent's subscription tier. It determines the monthly booking cap.
type Tier string

const (
	TierStarter   Tier = "starter"
	TierFamily    Tier = "family"
	TierUnlimited Tier = "unlimited"
)

var tierCaps = map[Tier]int{
	TierStarter: 2,
	TierFamily:  5,
	// TierUnlimited has no cap
}

func ParseTier(s string) (Tier, error) {
	switch t := Tier(core.CleanString(s, true /* lower */)); t {
	case TierStarter, TierFamily, TierUnlimited:
		return t, nil
	}
	return "", ErrUnknownTier
}

// MonthlyCap reports the tier's monthly booking cap.
// The second return value is false for uncapped tiers.
func (t Tier) MonthlyCap() (int, bool) {
	cap, ok := tierCaps[t]
	return cap, ok
}

type ParentProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Tier      Tier      `json:"tier"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Child struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"` // ParentProfile.ID
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	Allergies string    `json:"allergies"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewChild contains information needed to register a new Child.
type NewChild struct {
	Name      string    `json:"name" validate:"required"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	Allergies string    `json:"allergies"`
	Notes     string    `json:"notes"`
}

func (nc *NewChild) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Allergies = core.CleanString(nc.Allergies)
	nc.Notes = core.CleanString(nc.Notes)
	return core.Validate.Struct(nc)
}

// UpdateChild defines what information may be provided to modify an existing Child.
type UpdateChild struct {
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	Allergies *string   `json:"allergies"`
	Notes     *string   `json:"notes"`
}

func (uc *UpdateChild) Validate(origChild Child) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = origChild.Name
	}
	if uc.BirthDate.IsZero() {
		uc.BirthDate = origChild.BirthDate
	}
	return core.Validate.Struct(uc)
}

// NewParentProfile contains information needed to create a new ParentProfile.
type NewParentProfile struct {
	UserID string `json:"user_id" validate:"required"`
	Tier   string `json:"tier" validate:"required,tier"`
	Phone  string `json:"phone"`
}

func (np *NewParentProfile) Validate() error {
	np.Tier = core.CleanString(np.Tier, true /* lower */)
	np.Phone = core.CleanString(np.Phone)
	return core.Validate.Struct(np)
}
