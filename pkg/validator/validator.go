package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance with domain validations
func New() *CustomValidator {
	v := validator.New()

	// queue priority enum
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		switch entities.QueuePriority(fl.Field().String()) {
		case entities.QueuePriorityHigh, entities.QueuePriorityNormal, entities.QueuePriorityLow, "":
			return true
		}
		return false
	})

	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}
