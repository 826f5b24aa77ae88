package router

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	orderdomain "github.com/ecom/order-backend/internal/domain/order"
)

// RegisterValidators installs custom binding validators on gin's
// validator engine. Safe to call more than once.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("payment_method", validatePaymentMethod)
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return orderdomain.PaymentMethod(fl.Field().String()).IsValid()
}
