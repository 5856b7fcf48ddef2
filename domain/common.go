package domain

import (
	"errors"
	"os"
)

const (
	RoleUser = "user"

	PageSize         = 6
	MaxEmailLength   = 254
	MaxNameLength    = 150
	MaxFieldLength   = 256
	MaxPasswordLen   = 150
	MaxUsernameLen   = 150
	UsernamePattern  = `^[\w.@+-]+$`
	MinCookingTime   = 1
	MaxCookingTime   = 32000
	AmountMin        = 1
	AmountMax        = 10000
	MaxTagLength     = 32
	MaxIngredientLen = 128
	MaxUnitLength    = 64
)

var (
	MessageFailedBodyRequest    = "failed to parse request body"
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedGetToken       = "failed to get token"
	MessageFailedTokenInvalid   = "failed to token invalid"
	MessageUserNotAllowed       = "user not allowed"

	JwtSecret = os.Getenv("JWT_SECRET")

	ErrParseUUID      = errors.New("failed to parse UUID")
	ErrUserNotAllowed = errors.New("user not allowed")
	ErrTokenNotFound  = errors.New("failed to token not found")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)
