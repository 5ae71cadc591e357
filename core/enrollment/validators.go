package enrollment

import (
	"github.com/go-playground/validator/v10"

	"github.com/klasshero/backend/core"
)

var (
	paymentMethodTag  = "payment_method"
	paymentMethodText = "payment method must be one of: card, transfer"
)

func init() {
	_ = core.Validate.RegisterValidation(paymentMethodTag, paymentMethodValidation)
	core.RegisterCustomTranslation(paymentMethodTag, paymentMethodText)
}

// paymentMethodValidation checks that the provided value is a known payment method.
func paymentMethodValidation(fl validator.FieldLevel) bool {
	_, err := ParsePaymentMethod(fl.Field().String())
	return err == nil
}
