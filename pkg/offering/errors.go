package offering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Keyword values attached to field violations. The translator rewrites
// "required" violations to a fixed human-readable message; everything else
// passes its message through unchanged.
const (
	KeywordRequired = "required"
	KeywordType     = "type"
	KeywordMaxLen   = "maxLength"
	KeywordEnum     = "enum"
	KeywordBusiness = "business"
)

// NonFieldErrors is the sentinel envelope key for failures that are not tied
// to a single form field (storage errors, database unavailable, ...).
const NonFieldErrors = "non_field_errors"

const requiredMessage = "This field is required."

// FieldViolation is one raw violation against one field.
type FieldViolation struct {
	Message string
	Keyword string
}

// ValidationError is the typed error raised by schema checks and business
// rules on the write path. Violations are keyed by field name.
type ValidationError struct {
	Violations map[string][]FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Add appends a violation for the given field, allocating lazily so a zero
// ValidationError is usable.
func (e *ValidationError) Add(field, keyword, format string, args ...any) {
	if e.Violations == nil {
		e.Violations = make(map[string][]FieldViolation)
	}
	e.Violations[field] = append(e.Violations[field], FieldViolation{
		Message: fmt.Sprintf(format, args...),
		Keyword: keyword,
	})
}

// Empty reports whether no violations were recorded.
func (e *ValidationError) Empty() bool { return len(e.Violations) == 0 }

// OrNil returns nil when no violations were recorded, so callers can write
// `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// FieldError is one entry of the error envelope returned to HTTP callers.
type FieldError struct {
	Message string `json:"message"`
}

// ErrorEnvelope is the uniform failure shape of the entire write path:
// field name (or non_field_errors) -> list of messages.
type ErrorEnvelope map[string][]FieldError

// Translate classifies an error raised anywhere on the write path into the
// envelope returned to the caller. Validation errors become field-keyed
// message lists with required-kind violations rewritten to a fixed message;
// anything else lands under non_field_errors.
func Translate(err error) ErrorEnvelope {
	var verr *ValidationError
	if errors.As(err, &verr) {
		env := make(ErrorEnvelope, len(verr.Violations))
		for field, violations := range verr.Violations {
			entries := make([]FieldError, 0, len(violations))
			for _, v := range violations {
				msg := v.Message
				if v.Keyword == KeywordRequired {
					msg = requiredMessage
				}
				entries = append(entries, FieldError{Message: msg})
			}
			env[field] = entries
		}
		return env
	}
	return ErrorEnvelope{NonFieldErrors: {{Message: err.Error()}}}
}
