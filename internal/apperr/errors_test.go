package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Message: "Invalid input",
		Fields:  map[string]string{"zip_code": "required", "country": "required"},
	}
	assert.Equal(t, "Invalid input (country: required; zip_code: required)", err.Error())
	assert.Equal(t, "quantity must be at least 1", Invalid("quantity must be at least %d", 1).Error())
}

func TestKindsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", NotFound("cart item"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	gw := &GatewayError{Level: LevelError, Message: "payment provider rejected the request", Err: errors.New("card_declined")}
	var target *GatewayError
	assert.True(t, errors.As(fmt.Errorf("pay: %w", gw), &target))
	assert.Equal(t, "payment provider rejected the request: card_declined", target.Error())
}
