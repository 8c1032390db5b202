package validate

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/fkhayef/feeledger/pkg/apperror"
)

// ErrInvalidInput is returned for requests that fail struct validation
var ErrInvalidInput = apperror.Validation("INVALID_INPUT", "request validation failed")

var (
	dateTag  = "date"
	dateText = "{0} must be a date in YYYY-MM-DD format"

	requiredTag  = "required"
	requiredText = "{0} is required"
)

// Validator validates request DTOs and translates failures into field errors
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New instantiates the validator with English translations and JSON field names
func New() *Validator {
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(dateTag, dateValidation)
	registerTranslation(validate, translator, dateTag, dateText, false)
	registerTranslation(validate, translator, requiredTag, requiredText, true)

	return &Validator{validate: validate, translator: translator}
}

// Struct validates s and returns ErrInvalidInput with per-field messages on failure
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalidInput.Wrap(err)
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fieldPath(fe),
			Message: fe.Translate(v.translator),
		})
	}
	return ErrInvalidInput.WithFields(fields...)
}

// fieldPath drops the top-level struct name from the namespace ("Req.installments[0].name")
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// dateValidation accepts empty strings (pair with required) and YYYY-MM-DD dates
func dateValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
