package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
		user bool
	}{
		{Malformed(4, "(a", "unbalanced '('"), ErrMalformedFilter, true},
		{UnknownOperator("span.op", ">"), ErrUnknownOperator, true},
		{InvalidValue("span.duration", "fast", "not a duration"), ErrInvalidValue, true},
		{Catalog("spans", "x", "derived field requires an expression"), ErrCatalog, false},
		{fmt.Errorf("compile: %w", InvalidValue("a", "b", "c")), ErrInvalidValue, true},
		{fmt.Errorf("plain"), "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Code(tt.err), "%v", tt.err)
		assert.Equal(t, tt.user, IsUserError(tt.err), "%v", tt.err)
		assert.Equal(t, tt.code == ErrCatalog, IsCatalogError(tt.err), "%v", tt.err)
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, `malformed_filter: unbalanced '(' at position 4: "(a"`,
		Malformed(4, "(a", "unbalanced '('").Error())
	assert.Equal(t, `unknown_operator: operator ">" is not supported for field span.op`,
		UnknownOperator("span.op", ">").Error())
	assert.Equal(t, "catalog: dataset spans: unknown dataset", Catalog("spans", "", "unknown dataset").Error())
	assert.Equal(t, "catalog: dataset spans: field x: bad", Catalog("spans", "x", "bad").Error())
}

func TestInvalidEnumLabel(t *testing.T) {
	err := InvalidEnumLabel("span.status", "nope", []string{"ok", "cancelled", "aborted"})
	assert.Equal(t, "nope", err.RawValue)
	assert.Equal(t, `"nope" is not a valid label, expected one of: aborted, cancelled, ok`, err.Reason)
}
