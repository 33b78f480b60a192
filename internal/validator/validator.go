package validator

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New()

	// Money amount: strictly positive, at most two fractional digits.
	_ = Validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return d.IsPositive() && d.Equal(d.Round(2))
	})

	// Calendar date in YYYY-MM-DD form.
	_ = Validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})

	// Month reference in YYYY-MM form.
	_ = Validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01", fl.Field().String())
		return err == nil
	})
}
