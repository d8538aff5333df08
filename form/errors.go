package form

import (
	"errors"
	"strings"
)

var (
	// ErrImageRequired is the precondition for creating a product.
	ErrImageRequired = errors.New("form: image is required")

	// ErrInvalidSchema is returned when a form schema does not compile.
	ErrInvalidSchema = errors.New("form: invalid schema")
)

// FieldError is one failed rule, keyed by the form field's JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every field of a form that failed validation.
// Nothing has been sent to the backend when it is returned.
type ValidationError struct {
	Form   string       `json:"form"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "form: " + e.Form + ": " + strings.Join(msgs, "; ")
}

// Message returns the message recorded for field.
func (e *ValidationError) Message(field string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message, true
		}
	}
	return "", false
}

// PreconditionError rejects a submission before validation or any network
// call, for example a product without an image.
type PreconditionError struct {
	Reason string
	Err    error
}

// Precondition wraps err as a PreconditionError with a user-facing reason.
func Precondition(err error, reason string) *PreconditionError {
	return &PreconditionError{Reason: reason, Err: err}
}

func (e *PreconditionError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return e.Err.Error()
	}
	return "form: " + e.Reason
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// IsLocal reports whether err was produced by client-side checks, meaning no
// request reached the backend.
func IsLocal(err error) bool {
	var ve *ValidationError
	var pe *PreconditionError
	return errors.As(err, &ve) || errors.As(err, &pe)
}
