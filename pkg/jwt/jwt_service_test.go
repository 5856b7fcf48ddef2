package jwt_test

import (
	"testing"
	"time"

	"Foodgram-Backend/domain"
	"Foodgram-Backend/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTokenRoundtrip(t *testing.T) {
	svc := jwt.NewJWTService()
	userID := uuid.NewString()

	token := svc.GenerateTokenUser(userID, domain.RoleUser)
	require.NotEmpty(t, token)

	gotID, gotRole, err := svc.GetUserIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, domain.RoleUser, gotRole)
}

func TestTamperedUserTokenRejected(t *testing.T) {
	svc := jwt.NewJWTService()

	token := svc.GenerateTokenUser(uuid.NewString(), domain.RoleUser)
	_, _, err := svc.GetUserIDByToken(token + "x")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, _, err = svc.GetUserIDByToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestResetPasswordTokenRoundtrip(t *testing.T) {
	svc := jwt.NewJWTService()
	userID := uuid.NewString()

	token, err := svc.GenerateTokenResetPassword(map[string]any{"user_id": userID}, time.Minute*30)
	require.NoError(t, err)

	claims, err := svc.ValidateTokenResetPassword(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims["user_id"])
}

func TestExpiredResetPasswordTokenRejected(t *testing.T) {
	svc := jwt.NewJWTService()

	token, err := svc.GenerateTokenResetPassword(map[string]any{"user_id": uuid.NewString()}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateTokenResetPassword(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
