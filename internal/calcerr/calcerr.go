// Package calcerr defines the error kinds returned by the calculation packages.
//
// Each kind is a merry error. Derived errors keep the kind as their origin,
// so callers classify them with Is regardless of the messages appended on
// the way up.
package calcerr

import (
	"fmt"
	"net/http"

	"github.com/ansel1/merry"
)

var (
	ErrInvalidInput            = merry.New("invalid input").WithHTTPCode(http.StatusBadRequest)
	ErrCompositionInvalid      = merry.New("composition invalid").WithHTTPCode(http.StatusUnprocessableEntity)
	ErrEvaluatorUnavailable    = merry.New("evaluator unavailable").WithHTTPCode(http.StatusServiceUnavailable)
	ErrEvaluatorResultRejected = merry.New("evaluator result rejected").WithHTTPCode(http.StatusBadGateway)
)

type valueKey string

const fieldKey valueKey = "field"

// InvalidField returns an ErrInvalidInput naming the offending field.
func InvalidField(field, format string, args ...interface{}) error {
	msg := field + ": " + fmt.Sprintf(format, args...)
	return ErrInvalidInput.Here().
		Append(msg).
		WithValue(fieldKey, field).
		WithUserMessage(msg)
}

// CompositionInvalid returns an ErrCompositionInvalid carrying the given reason.
func CompositionInvalid(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return ErrCompositionInvalid.Here().
		Append(msg).
		WithValue(fieldKey, "composition").
		WithUserMessage("composition: " + msg)
}

// Field returns the name of the input field that caused err, or "".
func Field(err error) string {
	s, _ := merry.Value(err, fieldKey).(string)
	return s
}

func Is(err error, kind error) bool {
	return merry.Is(err, kind)
}

// Kind names the error kind of err for logs and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case merry.Is(err, ErrInvalidInput):
		return "invalid_input"
	case merry.Is(err, ErrCompositionInvalid):
		return "composition_invalid"
	case merry.Is(err, ErrEvaluatorUnavailable):
		return "evaluator_unavailable"
	case merry.Is(err, ErrEvaluatorResultRejected):
		return "evaluator_result_rejected"
	default:
		return "internal"
	}
}

// Message returns the user-facing text for err: the user message when one was
// set, the error text otherwise.
func Message(err error) string {
	if s := merry.UserMessage(err); s != "" {
		return s
	}
	return err.Error()
}
