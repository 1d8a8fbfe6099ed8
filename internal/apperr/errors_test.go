package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	assert.True(t, IsKind(Validation("bad input"), KindValidation))
	assert.True(t, IsKind(NotFound("missing"), KindNotFound))
	assert.True(t, IsKind(Conflict("busy"), KindConflict))
	assert.True(t, IsKind(Persistence("insert", errors.New("boom")), KindPersistence))

	assert.False(t, IsKind(NotFound("missing"), KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindValidation))
	assert.False(t, IsKind(nil, KindValidation))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", NotFound("Order not found"))
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPersistenceWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence("insert order", cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "insert order: connection refused", err.Error())
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock(3, 5)
	assert.Equal(t, "Insufficient stock. Available: 3, Requested: 5", err.Error())
	assert.True(t, IsInsufficientStock(err))
	assert.True(t, IsInsufficientStock(fmt.Errorf("reserve: %w", err)))
	assert.False(t, IsInsufficientStock(Validation("nope")))
}

func TestValidationFormatting(t *testing.T) {
	err := Validation("release of %d exceeds reserved stock %d", 7, 2)
	assert.Equal(t, "release of 7 exceeds reserved stock 2", err.Error())
}
