package handlers

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RegisterValidators teaches gin's validator about decimal amounts: dgt0 (> 0) and dgte0 (>= 0).
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	if err := v.RegisterValidation("dgt0", decimalCompare(func(d decimal.Decimal) bool { return d.IsPositive() })); err != nil {
		return err
	}
	return v.RegisterValidation("dgte0", decimalCompare(func(d decimal.Decimal) bool { return !d.IsNegative() }))
}

// decimalValue exposes a decimal to validator as its string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalCompare(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && ok(d)
	}
}
