package enrollment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/family"
)

var (
	// errors
	ErrNotFound             = errors.New("booking not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrChildNotSelected     = errors.New("a child must be selected")
	ErrBookingLimitExceeded = errors.New("monthly booking limit reached; upgrade your plan to book more")
	ErrAlreadyCancelled     = errors.New("booking is already cancelled")
)

// PaymentMethod is a closed set; anything else fails ErrInvalidPaymentMethod.
type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(core.CleanString(s, true /* lower */)); m {
	case PaymentCard, PaymentTransfer:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// FeeSchedule is the pricing input of a booking quote. WeeklyFee is the full
// program fee for the booked period as configured on the program; WeeksCount
// is carried along for itemization only and is never multiplied in.
type FeeSchedule struct {
	WeeklyFee       decimal.Decimal `json:"weekly_fee"`
	WeeksCount      int             `json:"weeks_count"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	CardFee         decimal.Decimal `json:"card_fee"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
}

// Quote is a fee breakdown. Total = Subtotal + VATAmount + CardFeeAmount,
// exactly; every amount is rounded half-up to 2 decimal places.
type Quote struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	CardFeeAmount decimal.Decimal `json:"card_fee_amount"`
	Total         decimal.Decimal `json:"total"`
}

// UsageInfo is a parent's booking quota standing for the current month.
type UsageInfo struct {
	Tier      family.Tier `json:"tier"`
	Cap       int         `json:"cap"`
	Used      int         `json:"used"`
	Remaining int         `json:"remaining"`
	Unlimited bool        `json:"unlimited"`
}

// Status of an Enrollment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Enrollment is a parent's confirmed booking of a child into a program,
// with the fee breakdown frozen at booking time.
type Enrollment struct {
	ID            string        `json:"id"`
	ParentID      string        `json:"parent_id"` // family.ParentProfile.ID
	ChildID       string        `json:"child_id"`
	ProgramID     string        `json:"program_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	CardFeeAmount decimal.Decimal `json:"card_fee_amount"`
	Total         decimal.Decimal `json:"total"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewBooking contains information needed to book a child into a program.
type NewBooking struct {
	ProgramID     string `json:"program_id" validate:"required"`
	ChildID       string `json:"child_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
}

func (nb *NewBooking) Validate() error {
	nb.ProgramID = core.CleanString(nb.ProgramID)
	nb.ChildID = core.CleanString(nb.ChildID)
	nb.PaymentMethod = core.CleanString(nb.PaymentMethod, true /* lower */)
	return core.Validate.Struct(nb)
}
