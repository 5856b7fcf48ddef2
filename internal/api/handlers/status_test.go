package handlers

import (
	"fmt"
	"testing"

	"Foodgram-Backend/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrRecipeNotFound, fiber.StatusNotFound},
		{domain.ErrUserNotFound, fiber.StatusNotFound},
		{domain.ErrNotInFavorites, fiber.StatusNotFound},
		{domain.ErrNotSubscribed, fiber.StatusNotFound},
		{domain.ErrAlreadyFavorited, fiber.StatusConflict},
		{domain.ErrAlreadySubscribed, fiber.StatusConflict},
		{domain.ErrSelfSubscription, fiber.StatusConflict},
		{domain.ErrEmailAlreadyExists, fiber.StatusConflict},
		{domain.ErrFilterRequiresAuth, fiber.StatusUnauthorized},
		{domain.ErrCredentialsInvalid, fiber.StatusUnauthorized},
		{domain.ErrTokenExpired, fiber.StatusUnauthorized},
		{domain.ErrNotRecipeAuthor, fiber.StatusForbidden},
		{domain.ErrMissingIngredients, fiber.StatusBadRequest},
		{domain.ErrCookingTimeOutOfRange, fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestStatusForWrappedError(t *testing.T) {
	err := fmt.Errorf("%w: Borscht", domain.ErrAlreadyFavorited)
	assert.Equal(t, fiber.StatusConflict, statusFor(err))
}
