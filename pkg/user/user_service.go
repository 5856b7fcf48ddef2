package user

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/internal/utils/mailing"
	"Foodgram-Backend/internal/utils/storage"
	"Foodgram-Backend/pkg/jwt"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var usernameRegexp = regexp.MustCompile(domain.UsernamePattern)

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
		Me(ctx context.Context, userID string) (domain.UserProfile, error)
		GetUserByID(ctx context.Context, id string, requesterID string) (domain.UserProfile, error)
		GetUsers(ctx context.Context, page, limit int, requesterID string) ([]domain.UserProfile, int64, error)
		UpdateAvatar(ctx context.Context, req domain.UpdateAvatarRequest, userID string) (domain.UpdateAvatarResponse, error)
		DeleteAvatar(ctx context.Context, userID string) error
		SetPassword(ctx context.Context, req domain.SetPasswordRequest, userID string) error
		ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
		ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error

		Subscribe(ctx context.Context, userID, targetID string, recipesLimit int) (domain.SubscriptionProfile, error)
		Unsubscribe(ctx context.Context, userID, targetID string) error
		GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) ([]domain.SubscriptionProfile, int64, error)
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
		s3             storage.AwsS3
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService, s3 storage.AwsS3) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
		s3:             s3,
	}
}

// normalizeEmail lowercases the domain part of the address.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return strings.ToLower(email[:at]) + "@" + strings.ToLower(email[at+1:])
}

func (s *userService) toProfile(ctx context.Context, user *entities.User, requesterID string) domain.UserProfile {
	isSubscribed := false
	if requesterID != "" && requesterID != user.ID.String() {
		subscribed, err := s.userRepository.IsSubscribed(ctx, requesterID, user.ID.String())
		if err == nil {
			isSubscribed = subscribed
		}
	}

	return domain.UserProfile{
		ID:           user.ID.String(),
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Avatar:       user.AvatarURL,
		IsSubscribed: isSubscribed,
	}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	if !usernameRegexp.MatchString(req.Username) {
		return domain.RegisterResponse{}, domain.ErrInvalidUsername
	}

	email := normalizeEmail(req.Email)

	if _, err := s.userRepository.GetUserByEmail(ctx, email); err == nil {
		return domain.RegisterResponse{}, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RegisterResponse{}, err
	}

	if _, err := s.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return domain.RegisterResponse{}, domain.ErrUsernameAlreadyTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RegisterResponse{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	user := &entities.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}

	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RegisterResponse{}, domain.ErrEmailAlreadyExists
		}
		return domain.RegisterResponse{}, err
	}

	return domain.RegisterResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoginResponse{}, domain.ErrCredentialsInvalid
		}
		return domain.LoginResponse{}, err
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		return domain.LoginResponse{}, domain.ErrCredentialsInvalid
	}

	token := s.jwtService.GenerateTokenUser(user.ID.String(), domain.RoleUser)
	return domain.LoginResponse{AuthToken: token}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (domain.UserProfile, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, domain.ErrUserNotFound
		}
		return domain.UserProfile{}, err
	}
	return s.toProfile(ctx, user, userID), nil
}

func (s *userService) GetUserByID(ctx context.Context, id string, requesterID string) (domain.UserProfile, error) {
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, domain.ErrUserNotFound
		}
		return domain.UserProfile{}, err
	}
	return s.toProfile(ctx, user, requesterID), nil
}

func (s *userService) GetUsers(ctx context.Context, page, limit int, requesterID string) ([]domain.UserProfile, int64, error) {
	users, count, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	profiles := make([]domain.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, s.toProfile(ctx, u, requesterID))
	}
	return profiles, count, nil
}

func (s *userService) UpdateAvatar(ctx context.Context, req domain.UpdateAvatarRequest, userID string) (domain.UpdateAvatarResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UpdateAvatarResponse{}, domain.ErrUserNotFound
		}
		return domain.UpdateAvatarResponse{}, err
	}

	data, contentType, err := storage.ParseInlineImage(req.Avatar)
	if err != nil {
		return domain.UpdateAvatarResponse{}, domain.ErrInvalidImagePayload
	}

	objectKey, err := s.s3.UploadBytes(
		fmt.Sprintf("avatar-%s", user.ID.String()),
		data,
		contentType,
		"avatars",
		storage.AllowImage...,
	)
	if err != nil {
		return domain.UpdateAvatarResponse{}, err
	}

	user.AvatarURL = s.s3.GetPublicLinkKey(objectKey)
	if err := s.userRepository.UpdateUser(ctx, user); err != nil {
		return domain.UpdateAvatarResponse{}, err
	}

	return domain.UpdateAvatarResponse{Avatar: user.AvatarURL}, nil
}

func (s *userService) DeleteAvatar(ctx context.Context, userID string) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	user.AvatarURL = ""
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) SetPassword(ctx context.Context, req domain.SetPasswordRequest, userID string) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if !CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return domain.ErrPasswordMismatch
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	user, err := s.userRepository.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	token, err := s.jwtService.GenerateTokenResetPassword(
		map[string]any{"user_id": user.ID.String()},
		time.Minute*30,
	)
	if err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", mailing.LoadMailConfig().AppURL, token)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Follow the link below to reset your password:</p><p><a href=%q>%s</a></p>",
		user.FirstName, resetLink, resetLink,
	)

	return mailing.SendMail(user.Email, "Password reset", body)
}

func (s *userService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	claims, err := s.jwtService.ValidateTokenResetPassword(req.Token)
	if err != nil {
		return err
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return domain.ErrTokenInvalid
	}

	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) toSubscriptionProfile(ctx context.Context, target *entities.User, requesterID string, recipesLimit int) (domain.SubscriptionProfile, error) {
	if recipesLimit <= 0 {
		recipesLimit = domain.PageSize
	}

	count, err := s.userRepository.CountRecipesByAuthor(ctx, target.ID.String())
	if err != nil {
		return domain.SubscriptionProfile{}, err
	}

	recipes, err := s.userRepository.GetRecipesByAuthor(ctx, target.ID.String(), recipesLimit)
	if err != nil {
		return domain.SubscriptionProfile{}, err
	}

	preview := make([]domain.RecipeShort, 0, len(recipes))
	for _, r := range recipes {
		preview = append(preview, domain.RecipeShort{
			ID:          r.ID.String(),
			Name:        r.Name,
			Image:       r.ImageURL,
			CookingTime: r.CookingTime,
		})
	}

	return domain.SubscriptionProfile{
		UserProfile:  s.toProfile(ctx, target, requesterID),
		RecipesCount: count,
		Recipes:      preview,
	}, nil
}

func (s *userService) Subscribe(ctx context.Context, userID, targetID string, recipesLimit int) (domain.SubscriptionProfile, error) {
	if userID == targetID {
		return domain.SubscriptionProfile{}, domain.ErrSelfSubscription
	}

	target, err := s.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SubscriptionProfile{}, domain.ErrUserNotFound
		}
		return domain.SubscriptionProfile{}, err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, userID, targetID)
	if err != nil {
		return domain.SubscriptionProfile{}, err
	}
	if subscribed {
		return domain.SubscriptionProfile{}, domain.ErrAlreadySubscribed
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.SubscriptionProfile{}, domain.ErrParseUUID
	}

	subscription := &entities.Subscription{
		ID:               uuid.New(),
		UserID:           userUUID,
		SubscribedUserID: target.ID,
	}

	if err := s.userRepository.CreateSubscription(ctx, subscription); err != nil {
		// Unique index backstop against concurrent subscribes.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.SubscriptionProfile{}, domain.ErrAlreadySubscribed
		}
		return domain.SubscriptionProfile{}, err
	}

	return s.toSubscriptionProfile(ctx, target, userID, recipesLimit)
}

func (s *userService) Unsubscribe(ctx context.Context, userID, targetID string) error {
	deleted, err := s.userRepository.DeleteSubscription(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrNotSubscribed
	}
	return nil
}

func (s *userService) GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) ([]domain.SubscriptionProfile, int64, error) {
	users, count, err := s.userRepository.GetSubscribedUsers(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	profiles := make([]domain.SubscriptionProfile, 0, len(users))
	for _, target := range users {
		profile, err := s.toSubscriptionProfile(ctx, target, userID, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, count, nil
}
