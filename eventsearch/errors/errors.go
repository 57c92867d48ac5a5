package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	ErrMalformedFilter ErrorCode = "malformed_filter"
	ErrUnknownOperator ErrorCode = "unknown_operator"
	ErrInvalidValue    ErrorCode = "invalid_value"
	ErrCatalog         ErrorCode = "catalog"
)

// MalformedFilterError reports a query string that cannot be tokenized.
// Position is the character offset of Snippet in the original query.
type MalformedFilterError struct {
	Position int
	Snippet  string
	Reason   string
}

func (e *MalformedFilterError) Error() string {
	return fmt.Sprintf("%s: %s at position %d: %q", ErrMalformedFilter, e.Reason, e.Position, e.Snippet)
}

// UnknownOperatorError reports an operator the resolved field type cannot take.
type UnknownOperatorError struct {
	Field    string
	Operator string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("%s: operator %q is not supported for field %s", ErrUnknownOperator, e.Operator, e.Field)
}

// InvalidValueError reports a literal that cannot be normalized for its field.
type InvalidValueError struct {
	Field    string
	RawValue string
	Reason   string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: invalid value %q for field %s: %s", ErrInvalidValue, e.RawValue, e.Field, e.Reason)
}

// CatalogError is a configuration fault in a field catalog. It is never
// caused by query input.
type CatalogError struct {
	Dataset string
	Field   string
	Reason  string
}

func (e *CatalogError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: dataset %s: %s", ErrCatalog, e.Dataset, e.Reason)
	}
	return fmt.Sprintf("%s: dataset %s: field %s: %s", ErrCatalog, e.Dataset, e.Field, e.Reason)
}

func Malformed(pos int, snippet, reason string) *MalformedFilterError {
	return &MalformedFilterError{Position: pos, Snippet: snippet, Reason: reason}
}

func UnknownOperator(field, op string) *UnknownOperatorError {
	return &UnknownOperatorError{Field: field, Operator: op}
}

func InvalidValue(field, raw, reason string) *InvalidValueError {
	return &InvalidValueError{Field: field, RawValue: raw, Reason: reason}
}

// InvalidEnumLabel names the rejected label and the sorted set of valid ones.
func InvalidEnumLabel(field, label string, valid []string) *InvalidValueError {
	sorted := append([]string(nil), valid...)
	sort.Strings(sorted)
	return &InvalidValueError{
		Field:    field,
		RawValue: label,
		Reason:   fmt.Sprintf("%q is not a valid label, expected one of: %s", label, strings.Join(sorted, ", ")),
	}
}

func Catalog(dataset, field, reason string) *CatalogError {
	return &CatalogError{Dataset: dataset, Field: field, Reason: reason}
}

// Code returns the ErrorCode of err, or "" when err is not one of ours.
func Code(err error) ErrorCode {
	var (
		mf *MalformedFilterError
		uo *UnknownOperatorError
		iv *InvalidValueError
		ce *CatalogError
	)
	switch {
	case stderrors.As(err, &mf):
		return ErrMalformedFilter
	case stderrors.As(err, &uo):
		return ErrUnknownOperator
	case stderrors.As(err, &iv):
		return ErrInvalidValue
	case stderrors.As(err, &ce):
		return ErrCatalog
	}
	return ""
}

// IsUserError reports whether err was caused by query input rather than
// configuration. Callers map these to client-facing validation failures.
func IsUserError(err error) bool {
	switch Code(err) {
	case ErrMalformedFilter, ErrUnknownOperator, ErrInvalidValue:
		return true
	}
	return false
}

func IsCatalogError(err error) bool {
	return Code(err) == ErrCatalog
}
