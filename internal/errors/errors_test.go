package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound_Wrapped(t *testing.T) {
	err := fmt.Errorf("get order ord_1: %w", ErrNotFound)

	assert.True(t, IsNotFound(err))
	assert.False(t, IsDuplicate(err))
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("checkout: %w", NewValidationError("items", "at least one item is required"))

	ve, ok := AsValidationError(err)
	assert.True(t, ok)
	assert.Equal(t, "items", ve.Field)
	assert.Equal(t, "at least one item is required", ve.Details["items"])
	assert.Contains(t, err.Error(), "validation failed on items")
}

func TestUpstreamError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewUpstreamError("paystack", 503, "transaction initialize failed", cause)

	ue, ok := AsUpstreamError(fmt.Errorf("checkout: %w", err))
	assert.True(t, ok)
	assert.Equal(t, 503, ue.StatusCode)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "paystack: transaction initialize failed (status 503): connection refused", err.Error())
}
