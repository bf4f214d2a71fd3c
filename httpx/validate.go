package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/mbolis/uss/log"
	"github.com/samber/lo"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields under their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeAndValidate reads a JSON body into v and checks its `validate` tags.
// On failure it writes a 400 response and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, code string, v any) bool {
	err := render.DecodeJSON(r.Body, v)
	if err != nil {
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code+".decode", "malformed JSON body: %s", err)
		return false
	}

	err = Validate(v)
	if err != nil {
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code+".validate", "%s", err)
		return false
	}
	return true
}

// Validate checks the `validate` tags of v, flattening field errors into one
// readable message.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		if fe.Param() != "" {
			return fe.Field() + ": failed '" + fe.Tag() + "=" + fe.Param() + "'"
		}
		return fe.Field() + ": failed '" + fe.Tag() + "'"
	})
	return errors.New(strings.Join(msgs, "; "))
}
