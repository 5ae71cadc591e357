package family

import (
	"github.com/go-playground/validator/v10"

	"github.com/klasshero/backend/core"
)

var (
	tierTag  = "tier"
	tierText = "unknown subscription tier"
)

func init() {
	_ = core.Validate.RegisterValidation(tierTag, tierValidation)
	core.RegisterCustomTranslation(tierTag, tierText)
}

// tierValidation checks that the provided value is a known subscription tier.
func tierValidation(fl validator.FieldLevel) bool {
	_, err := ParseTier(fl.Field().String())
	return err == nil
}
