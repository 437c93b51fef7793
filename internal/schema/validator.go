// Package schema validates inbound request payloads using struct tags.
package schema

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"travel-voice-service/internal/models"
)

// languagePattern accepts provider language codes such as zh_cn, en_us or ja.
var languagePattern = regexp.MustCompile(`^[a-z]{2,3}([_-][a-zA-Z]{2,4})?$`)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload fails validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validator wraps a configured go-playground validator.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with json field names and the language_code tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("language_code", func(fl validator.FieldLevel) bool {
		return languagePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate checks a struct against its validate tags.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   e.Field(),
			Message: formatFieldError(e),
		})
	}
	return out
}

// ValidateVoiceInput validates a recognition request body.
func (v *Validator) ValidateVoiceInput(in models.VoiceInput) error {
	return v.Validate(in)
}

// ValidateLanguage validates a language code supplied outside a JSON body,
// such as a multipart form field. Empty means the default language.
func (v *Validator) ValidateLanguage(language string) error {
	err := v.validate.Var(language, "omitempty,language_code")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Fields: []FieldError{{
			Field:   "language",
			Message: formatFieldError(verrs[0]),
		}}}
	}
	return err
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "language_code":
		return "must be a language code such as zh_cn or en_us"
	case "max":
		return "must be at most " + e.Param() + " characters"
	default:
		return "is invalid"
	}
}
