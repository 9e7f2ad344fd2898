package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := models.ParseRole(fl.Field().String())
		return err == nil
	})
	return v
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

func validateStruct(data any) []FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Tag: "invalid"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Tag: e.Tag(), Param: e.Param()})
	}
	return out
}

// bind decodes the JSON body into req and validates it, answering 400 on
// failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWith(c, http.StatusBadRequest, "invalid request payload", nil)
		return false
	}
	if errs := validateStruct(req); len(errs) > 0 {
		abortWith(c, http.StatusBadRequest, "validation failed", errs)
		return false
	}
	return true
}
