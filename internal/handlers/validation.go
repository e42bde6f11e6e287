package handlers

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Local mobile numbers (0244123456) or international format (233244123456,
// optionally with a leading +), separators tolerated.
var phonePattern = regexp.MustCompile(`^(0\d{9}|\d{12})$`)

func validatePhone(fl validator.FieldLevel) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(fl.Field().String())
	return phonePattern.MatchString(cleaned)
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("phone", validatePhone)
	}
}
