package validators

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/planease/engine/internal/models"
)

// New returns a validator that reports JSON field names and knows the
// intake_step tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("intake_step", func(fl validator.FieldLevel) bool {
		return models.IsStep(fl.Field().String())
	})
	return v
}
