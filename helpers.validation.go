package main

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Limits on free text fields of a suggestion.
const (
	MaxTitleLength       = 200
	MaxAuthorLength      = 100
	MaxDescriptionLength = 2000
	MaxQuoteLength       = 500
)

var unsafeTextPattern = regexp.MustCompile(`(?i)(javascript:|data:|vbscript:|\bon\w+\s*=)`)

// FieldErrors maps a json field name to a readable message.
type FieldErrors map[string]string

// ValidationError carries the failed fields of a request.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d invalid field(s)", ErrInvalidSuggestionRequest, len(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSuggestionRequest
}

// Validator wraps go-playground/validator with readable field messages.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator which reports json field names
// and knows the `safetext` tag.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		return !unsafeTextPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate checks the struct and returns a *ValidationError on failure.
func (v *Validator) Validate(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	fields := make(FieldErrors, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return &ValidationError{Fields: fields}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "alphanum":
		return "must only contain letters and digits"
	case "safetext":
		return "contains forbidden content"
	default:
		return "is invalid"
	}
}

// SanitizeText trims the input, drops control characters and angle
// brackets then cuts it to max runes. Line breaks are kept.
func SanitizeText(s string, max int) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '<' || r == '>':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > max {
		s = strings.TrimSpace(string(runes[:max]))
	}
	return s
}

// NormalizeISBN removes separators and upper-cases the check character.
func NormalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(isbn)
	return strings.ToUpper(strings.TrimSpace(isbn))
}

// SanitizeSuggestion cleans every free text field of the request in place.
func SanitizeSuggestion(req *SuggestBookRequest) {
	req.Title = SanitizeText(req.Title, MaxTitleLength)
	req.Author = SanitizeText(req.Author, MaxAuthorLength)
	req.Description = SanitizeText(req.Description, MaxDescriptionLength)
	req.InspirationQuote = SanitizeText(req.InspirationQuote, MaxQuoteLength)
	req.CoverURL = strings.TrimSpace(req.CoverURL)
	req.ISBN = NormalizeISBN(req.ISBN)
}
