package transport

import (
	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidators adds the measure and dimension rules used by the request DTOs.
func RegisterValidators(v *validator.Validator) error {
	rules := map[string]playground.Func{
		"measure": func(fl playground.FieldLevel) bool {
			_, err := domain.ParseMeasure(fl.Field().String())
			return err == nil
		},
		"measure_list": func(fl playground.FieldLevel) bool {
			_, err := domain.ParseMeasures(fl.Field().String())
			return err == nil
		},
		"dimension_list": func(fl playground.FieldLevel) bool {
			_, err := domain.ParseGroupBy(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
