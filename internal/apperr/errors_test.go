package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedChain(t *testing.T) {
	err := fmt.Errorf("failed to checkout: %w", StockExceeded("only %d units available", 2))

	assert.Equal(t, KindStockExceeded, KindOf(err))
	assert.True(t, errors.Is(err, ErrStockExceeded))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "only 2 units available", Message(err))
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "boom", Message(err))
	assert.Equal(t, "", Message(nil))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, cause, "failed to save cart")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "failed to save cart: connection refused", err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "EMPTY_CART", KindEmptyCart.String())
	assert.Equal(t, "VALIDATION_ERROR", KindValidation.String())
	assert.Equal(t, "INTERNAL", Kind(99).String())
}
