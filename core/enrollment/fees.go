package enrollment

import (
	"github.com/shopspring/decimal"

	"github.com/klasshero/backend/core/program"
)

// money rounds to 2 decimal places, half-up.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NewFeeSchedule assembles a FeeSchedule from a program's pricing and the
// parent's chosen payment method.
func NewFeeSchedule(prog program.Program, method PaymentMethod) FeeSchedule {
	return FeeSchedule{
		WeeklyFee:       prog.WeeklyFee,
		WeeksCount:      prog.WeeksCount,
		RegistrationFee: prog.RegistrationFee,
		VATRate:         prog.VATRate,
		CardFee:         prog.CardFee,
		PaymentMethod:   method,
	}
}

// Quote computes the fee breakdown:
//
//	subtotal = weekly_fee + registration_fee
//	vat      = subtotal * vat_rate
//	card fee = card_fee when paying by card, else 0
//	total    = subtotal + vat + card fee
//
// Amounts are rounded half-up to 2 decimal places at each step, so the total
// is the exact sum of the rounded parts.
func (fs FeeSchedule) Quote() (Quote, error) {
	switch fs.PaymentMethod {
	case PaymentCard, PaymentTransfer:
	default:
		return Quote{}, ErrInvalidPaymentMethod
	}

	subtotal := money(fs.WeeklyFee.Add(fs.RegistrationFee))
	vat := money(subtotal.Mul(fs.VATRate))

	cardFee := decimal.Zero
	if fs.PaymentMethod == PaymentCard {
		cardFee = money(fs.CardFee)
	}

	return Quote{
		Subtotal:      subtotal,
		VATAmount:     vat,
		CardFeeAmount: cardFee,
		Total:         subtotal.Add(vat).Add(cardFee),
	}, nil
}
