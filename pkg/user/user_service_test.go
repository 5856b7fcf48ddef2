package user_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/internal/testutil"
	"Foodgram-Backend/pkg/jwt"
	"Foodgram-Backend/pkg/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) (user.UserService, *gorm.DB) {
	db := testutil.NewTestDB(t)
	svc := user.NewUserService(user.NewUserRepository(db), jwt.NewJWTService(), testutil.NewFakeS3())
	return svc, db
}

func register(t *testing.T, svc user.UserService, email, username string) domain.RegisterResponse {
	t.Helper()
	res, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:     email,
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cretpass",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res := register(t, svc, "alice@example.com", "alice")
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "alice", res.Username)

	login, err := svc.Login(ctx, domain.LoginRequest{Email: "alice@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AuthToken)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "alice@example.com", Password: "wrongpass"})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "nobody@example.com", Password: "s3cretpass"})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res := register(t, svc, "Bob@Example.COM", "bob")
	assert.Equal(t, "bob@example.com", res.Email)

	login, err := svc.Login(ctx, domain.LoginRequest{Email: "bob@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AuthToken)
}

func TestRegisterConflicts(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	register(t, svc, "carol@example.com", "carol")

	_, err := svc.Register(ctx, domain.RegisterRequest{
		Email:     "carol@example.com",
		Username:  "carol2",
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cretpass",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	_, err = svc.Register(ctx, domain.RegisterRequest{
		Email:     "carol2@example.com",
		Username:  "carol",
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cretpass",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameAlreadyTaken)
}

func TestRegisterRejectsInvalidUsername(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:     "dave@example.com",
		Username:  "dave smith!",
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cretpass",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)
}

func TestSetPassword(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res := register(t, svc, "erin@example.com", "erin")

	err := svc.SetPassword(ctx, domain.SetPasswordRequest{
		CurrentPassword: "wrongpass",
		NewPassword:     "newpassword",
	}, res.ID)
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	err = svc.SetPassword(ctx, domain.SetPasswordRequest{
		CurrentPassword: "s3cretpass",
		NewPassword:     "newpassword",
	}, res.ID)
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "erin@example.com", Password: "newpassword"})
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res := register(t, svc, "frank@example.com", "frank")

	token, err := jwt.NewJWTService().GenerateTokenResetPassword(
		map[string]any{"user_id": res.ID},
		time.Minute*30,
	)
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, domain.ResetPasswordRequest{Token: token, NewPassword: "resetpassword"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "frank@example.com", Password: "resetpassword"})
	assert.NoError(t, err)
}

func TestUpdateAvatar(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res := register(t, svc, "grace@example.com", "grace")

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	updated, err := svc.UpdateAvatar(ctx, domain.UpdateAvatarRequest{Avatar: payload}, res.ID)
	require.NoError(t, err)
	assert.Contains(t, updated.Avatar, "avatars/avatar-"+res.ID)

	me, err := svc.Me(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Avatar, me.Avatar)

	require.NoError(t, svc.DeleteAvatar(ctx, res.ID))
	me, err = svc.Me(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, me.Avatar)
}

func TestUpdateAvatarRejectsBadPayload(t *testing.T) {
	svc, _ := newUserService(t)

	res := register(t, svc, "heidi@example.com", "heidi")

	_, err := svc.UpdateAvatar(context.Background(), domain.UpdateAvatarRequest{Avatar: "not-a-data-uri"}, res.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidImagePayload)
}

func TestSubscribe(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	follower := register(t, svc, "ivan@example.com", "ivan")
	author := register(t, svc, "judy@example.com", "judy")

	_, err := svc.Subscribe(ctx, follower.ID, follower.ID, 0)
	assert.ErrorIs(t, err, domain.ErrSelfSubscription)

	_, err = svc.Subscribe(ctx, follower.ID, uuid.NewString(), 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	profile, err := svc.Subscribe(ctx, follower.ID, author.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "judy", profile.Username)
	assert.True(t, profile.IsSubscribed)
	assert.Zero(t, profile.RecipesCount)

	_, err = svc.Subscribe(ctx, follower.ID, author.ID, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
}

func TestUnsubscribe(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	follower := register(t, svc, "kate@example.com", "kate")
	author := register(t, svc, "leo@example.com", "leo")

	_, err := svc.Subscribe(ctx, follower.ID, author.ID, 0)
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(ctx, follower.ID, author.ID))

	err = svc.Unsubscribe(ctx, follower.ID, author.ID)
	assert.ErrorIs(t, err, domain.ErrNotSubscribed)
}

func TestGetSubscriptionsRecipePreview(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()

	follower := register(t, svc, "mike@example.com", "mike")
	author := register(t, svc, "nina@example.com", "nina")
	authorUUID := uuid.MustParse(author.ID)

	for i, name := range []string{"Borscht", "Pancakes", "Omelette"} {
		require.NoError(t, db.Create(&entities.Recipe{
			ID:          uuid.New(),
			AuthorID:    authorUUID,
			Name:        name,
			Text:        "text",
			CookingTime: 10 + i,
		}).Error)
	}

	_, err := svc.Subscribe(ctx, follower.ID, author.ID, 2)
	require.NoError(t, err)

	subscriptions, count, err := svc.GetSubscriptions(ctx, follower.ID, 1, domain.PageSize, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, subscriptions, 1)
	assert.Equal(t, "nina", subscriptions[0].Username)
	assert.EqualValues(t, 3, subscriptions[0].RecipesCount)
	assert.Len(t, subscriptions[0].Recipes, 2)
}

func TestGetUsersMarksSubscriptions(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	follower := register(t, svc, "olga@example.com", "olga")
	author := register(t, svc, "pete@example.com", "pete")

	_, err := svc.Subscribe(ctx, follower.ID, author.ID, 0)
	require.NoError(t, err)

	profiles, count, err := svc.GetUsers(ctx, 1, domain.PageSize, follower.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	byUsername := map[string]domain.UserProfile{}
	for _, p := range profiles {
		byUsername[p.Username] = p
	}
	assert.True(t, byUsername["pete"].IsSubscribed)
	assert.False(t, byUsername["olga"].IsSubscribed)
}
