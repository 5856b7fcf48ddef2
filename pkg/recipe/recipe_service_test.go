package recipe_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/internal/testutil"
	"Foodgram-Backend/pkg/catalog"
	"Foodgram-Backend/pkg/jwt"
	"Foodgram-Backend/pkg/recipe"
	"Foodgram-Backend/pkg/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     recipe.RecipeService
	userSvc user.UserService
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewTestDB(t)

	userRepository := user.NewUserRepository(db)
	catalogRepository := catalog.NewCatalogRepository(db)
	recipeRepository := recipe.NewRecipeRepository(db)
	s3 := testutil.NewFakeS3()

	return &fixture{
		db:      db,
		svc:     recipe.NewRecipeService(recipeRepository, catalogRepository, userRepository, s3),
		userSvc: user.NewUserService(userRepository, jwt.NewJWTService(), s3),
	}
}

func (f *fixture) registerUser(t *testing.T, email, username string) string {
	t.Helper()
	res, err := f.userSvc.Register(context.Background(), domain.RegisterRequest{
		Email:     email,
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cretpass",
	})
	require.NoError(t, err)
	return res.ID
}

func (f *fixture) seedTag(t *testing.T, name, slug string) string {
	t.Helper()
	tag := entities.Tag{ID: uuid.New(), Name: name, Slug: slug}
	require.NoError(t, f.db.Create(&tag).Error)
	return tag.ID.String()
}

func (f *fixture) seedIngredient(t *testing.T, name, unit string) string {
	t.Helper()
	ingredient := entities.Ingredient{ID: uuid.New(), Name: name, MeasurementUnit: unit}
	require.NoError(t, f.db.Create(&ingredient).Error)
	return ingredient.ID.String()
}

func inlineImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
}

func createRequest(tagID, ingredientID string) domain.CreateRecipeRequest {
	return domain.CreateRecipeRequest{
		Name:        "Scrambled eggs",
		Image:       inlineImage(),
		Text:        "Whisk and fry.",
		CookingTime: 10,
		Tags:        []string{tagID},
		Ingredients: []domain.RecipeIngredientRequest{{ID: ingredientID, Amount: 2}},
	}
}

func TestCreateRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "alice@example.com", "alice")
	tagID := f.seedTag(t, "Breakfast", "breakfast")
	ingredientID := f.seedIngredient(t, "egg", "pc")

	res, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "Scrambled eggs", res.Name)
	assert.Equal(t, 10, res.CookingTime)
	assert.Contains(t, res.Image, "recipes/recipe-")
	assert.Equal(t, "alice", res.Author.Username)
	assert.False(t, res.Author.IsSubscribed)
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "breakfast", res.Tags[0].Slug)
	require.Len(t, res.Ingredients, 1)
	assert.Equal(t, "egg", res.Ingredients[0].Name)
	assert.Equal(t, "pc", res.Ingredients[0].MeasurementUnit)
	assert.Equal(t, 2, res.Ingredients[0].Amount)
	assert.False(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)
}

func TestCreateRecipeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "bob@example.com", "bob")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "salt", "g")

	cases := []struct {
		name    string
		mutate  func(*domain.CreateRecipeRequest)
		wantErr error
	}{
		{
			name:    "no ingredients",
			mutate:  func(r *domain.CreateRecipeRequest) { r.Ingredients = nil },
			wantErr: domain.ErrMissingIngredients,
		},
		{
			name: "duplicate ingredients",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.Ingredients = append(r.Ingredients, r.Ingredients[0])
			},
			wantErr: domain.ErrDuplicateIngredients,
		},
		{
			name:    "no tags",
			mutate:  func(r *domain.CreateRecipeRequest) { r.Tags = nil },
			wantErr: domain.ErrMissingTags,
		},
		{
			name:    "duplicate tags",
			mutate:  func(r *domain.CreateRecipeRequest) { r.Tags = []string{tagID, tagID} },
			wantErr: domain.ErrDuplicateTags,
		},
		{
			name:    "unknown tag",
			mutate:  func(r *domain.CreateRecipeRequest) { r.Tags = []string{uuid.NewString()} },
			wantErr: domain.ErrTagNotFound,
		},
		{
			name:    "cooking time too low",
			mutate:  func(r *domain.CreateRecipeRequest) { r.CookingTime = 0 },
			wantErr: domain.ErrCookingTimeOutOfRange,
		},
		{
			name:    "cooking time too high",
			mutate:  func(r *domain.CreateRecipeRequest) { r.CookingTime = domain.MaxCookingTime + 1 },
			wantErr: domain.ErrCookingTimeOutOfRange,
		},
		{
			name: "amount too low",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.Ingredients[0].Amount = 0
			},
			wantErr: domain.ErrAmountOutOfRange,
		},
		{
			name: "amount too high",
			mutate: func(r *domain.CreateRecipeRequest) {
				r.Ingredients[0].Amount = domain.AmountMax + 1
			},
			wantErr: domain.ErrAmountOutOfRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createRequest(tagID, ingredientID)
			tc.mutate(&req)

			_, err := f.svc.CreateRecipe(ctx, req, authorID)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&entities.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRecipeReportsAllMissingIngredients(t *testing.T) {
	f := newFixture(t)

	authorID := f.registerUser(t, "carol@example.com", "carol")
	tagID := f.seedTag(t, "Lunch", "lunch")

	missingA := uuid.NewString()
	missingB := uuid.NewString()
	req := createRequest(tagID, missingA)
	req.Ingredients = append(req.Ingredients, domain.RecipeIngredientRequest{ID: missingB, Amount: 1})

	_, err := f.svc.CreateRecipe(context.Background(), req, authorID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Contains(t, err.Error(), missingA)
	assert.Contains(t, err.Error(), missingB)
}

func TestCreateRecipeRejectsBadImage(t *testing.T) {
	f := newFixture(t)

	authorID := f.registerUser(t, "dave@example.com", "dave")
	tagID := f.seedTag(t, "Lunch", "lunch")
	ingredientID := f.seedIngredient(t, "flour", "g")

	req := createRequest(tagID, ingredientID)
	req.Image = "not-a-data-uri"

	_, err := f.svc.CreateRecipe(context.Background(), req, authorID)
	assert.ErrorIs(t, err, domain.ErrInvalidImagePayload)
}

func TestGetRecipeDetailAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "erin@example.com", "erin")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "onion", "pc")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	res, err := f.svc.GetRecipeDetail(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, res.ID)
	assert.False(t, res.IsFavorited)
	assert.False(t, res.Author.IsSubscribed)

	_, err = f.svc.GetRecipeDetail(ctx, uuid.NewString(), "")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestUpdateRecipeChecksOwnershipFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "frank@example.com", "frank")
	otherID := f.registerUser(t, "grace@example.com", "grace")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "garlic", "clove")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	// Invalid payload from a non-author still reports the permission error.
	req := domain.UpdateRecipeRequest{Name: "Stolen", Text: "x", CookingTime: 5}
	_, err = f.svc.UpdateRecipe(ctx, created.ID, req, otherID)
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
}

func TestUpdateRecipeReplacesComposition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "heidi@example.com", "heidi")
	oldTag := f.seedTag(t, "Breakfast", "breakfast")
	newTag := f.seedTag(t, "Dinner", "dinner")
	oldIngredient := f.seedIngredient(t, "egg", "pc")
	newIngredient := f.seedIngredient(t, "butter", "g")

	created, err := f.svc.CreateRecipe(ctx, createRequest(oldTag, oldIngredient), authorID)
	require.NoError(t, err)

	req := domain.UpdateRecipeRequest{
		Name:        "Omelette",
		Text:        "Now with butter.",
		CookingTime: 15,
		Tags:        []string{newTag},
		Ingredients: []domain.RecipeIngredientRequest{{ID: newIngredient, Amount: 30}},
	}

	updated, err := f.svc.UpdateRecipe(ctx, created.ID, req, authorID)
	require.NoError(t, err)

	assert.Equal(t, "Omelette", updated.Name)
	assert.Equal(t, 15, updated.CookingTime)
	// No image in the payload keeps the stored one.
	assert.Equal(t, created.Image, updated.Image)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "dinner", updated.Tags[0].Slug)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "butter", updated.Ingredients[0].Name)
	assert.Equal(t, 30, updated.Ingredients[0].Amount)

	var rows int64
	require.NoError(t, f.db.Model(&entities.RecipeIngredient{}).
		Where("recipe_id = ?", created.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestUpdateRecipeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "ivan@example.com", "ivan")
	tagID := f.seedTag(t, "Lunch", "lunch")
	ingredientID := f.seedIngredient(t, "milk", "ml")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	req := domain.UpdateRecipeRequest{
		Name:        created.Name,
		Text:        created.Text,
		CookingTime: created.CookingTime,
		Tags:        []string{tagID},
		Ingredients: []domain.RecipeIngredientRequest{{ID: ingredientID, Amount: 2}},
	}

	first, err := f.svc.UpdateRecipe(ctx, created.ID, req, authorID)
	require.NoError(t, err)
	second, err := f.svc.UpdateRecipe(ctx, created.ID, req, authorID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var rows int64
	require.NoError(t, f.db.Model(&entities.RecipeIngredient{}).
		Where("recipe_id = ?", created.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestDeleteRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "judy@example.com", "judy")
	otherID := f.registerUser(t, "kate@example.com", "kate")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "salt", "g")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	_, err = f.svc.AddFavorite(ctx, created.ID, otherID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, created.ID, otherID)
	require.NoError(t, err)

	err = f.svc.DeleteRecipe(ctx, created.ID, otherID)
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	require.NoError(t, f.svc.DeleteRecipe(ctx, created.ID, authorID))

	_, err = f.svc.GetRecipeDetail(ctx, created.ID, "")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	for model, table := range map[string]interface{}{
		"recipe_ingredients": &entities.RecipeIngredient{},
		"favorites":          &entities.Favorite{},
		"shopping_carts":     &entities.ShoppingCart{},
	} {
		var rows int64
		require.NoError(t, f.db.Model(table).Where("recipe_id = ?", created.ID).Count(&rows).Error)
		assert.Zero(t, rows, model)
	}

	var tagLinks int64
	require.NoError(t, f.db.Raw(
		"SELECT COUNT(*) FROM recipe_tags WHERE recipe_id = ?", created.ID,
	).Scan(&tagLinks).Error)
	assert.Zero(t, tagLinks)

	err = f.svc.DeleteRecipe(ctx, uuid.NewString(), authorID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestFavoriteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "leo@example.com", "leo")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "onion", "pc")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	short, err := f.svc.AddFavorite(ctx, created.ID, authorID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)
	assert.Equal(t, created.Name, short.Name)

	_, err = f.svc.AddFavorite(ctx, created.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)
	assert.Contains(t, err.Error(), created.Name)

	var rows int64
	require.NoError(t, f.db.Model(&entities.Favorite{}).
		Where("recipe_id = ?", created.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	require.NoError(t, f.svc.RemoveFavorite(ctx, created.ID, authorID))

	err = f.svc.RemoveFavorite(ctx, created.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrNotInFavorites)

	_, err = f.svc.AddFavorite(ctx, uuid.NewString(), authorID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestShoppingCartLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "mike@example.com", "mike")
	tagID := f.seedTag(t, "Lunch", "lunch")
	ingredientID := f.seedIngredient(t, "flour", "g")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	short, err := f.svc.AddToCart(ctx, created.ID, authorID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)

	_, err = f.svc.AddToCart(ctx, created.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInCart)
	assert.Contains(t, err.Error(), created.Name)

	require.NoError(t, f.svc.RemoveFromCart(ctx, created.ID, authorID))

	err = f.svc.RemoveFromCart(ctx, created.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrNotInCart)
}

func TestDownloadShoppingListAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "nina@example.com", "nina")
	tagID := f.seedTag(t, "Dinner", "dinner")
	saltID := f.seedIngredient(t, "salt", "tsp")
	sugarID := f.seedIngredient(t, "sugar", "g")

	first := createRequest(tagID, saltID)
	first.Name = "Soup"
	first.Ingredients = []domain.RecipeIngredientRequest{{ID: saltID, Amount: 2}}
	firstRes, err := f.svc.CreateRecipe(ctx, first, authorID)
	require.NoError(t, err)

	second := createRequest(tagID, saltID)
	second.Name = "Cake"
	second.Ingredients = []domain.RecipeIngredientRequest{
		{ID: saltID, Amount: 3},
		{ID: sugarID, Amount: 5},
	}
	secondRes, err := f.svc.CreateRecipe(ctx, second, authorID)
	require.NoError(t, err)

	_, err = f.svc.AddToCart(ctx, firstRes.ID, authorID)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, secondRes.ID, authorID)
	require.NoError(t, err)

	list, err := f.svc.DownloadShoppingList(ctx, authorID)
	require.NoError(t, err)
	assert.Equal(t, "salt - 5 (tsp)\nsugar - 5 (g)", list)
}

func TestDownloadShoppingListEmptyCart(t *testing.T) {
	f := newFixture(t)

	userID := f.registerUser(t, "olga@example.com", "olga")

	list, err := f.svc.DownloadShoppingList(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetRecipesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "pete@example.com", "pete")
	otherID := f.registerUser(t, "rita@example.com", "rita")
	breakfastTag := f.seedTag(t, "Breakfast", "breakfast")
	dinnerTag := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "egg", "pc")

	firstReq := createRequest(breakfastTag, ingredientID)
	firstReq.Name = "Pancakes"
	first, err := f.svc.CreateRecipe(ctx, firstReq, authorID)
	require.NoError(t, err)

	secondReq := createRequest(dinnerTag, ingredientID)
	secondReq.Name = "Stew"
	second, err := f.svc.CreateRecipe(ctx, secondReq, otherID)
	require.NoError(t, err)

	ids := func(recipes []domain.RecipeResponse) []string {
		var out []string
		for _, r := range recipes {
			out = append(out, r.ID)
		}
		return out
	}

	recipes, count, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{Tags: []string{"breakfast"}}, 1, domain.PageSize, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, []string{first.ID}, ids(recipes))

	recipes, count, err = f.svc.GetRecipes(ctx, domain.RecipeFilter{Tags: []string{"breakfast", "dinner"}}, 1, domain.PageSize, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids(recipes))

	recipes, count, err = f.svc.GetRecipes(ctx, domain.RecipeFilter{Author: otherID}, 1, domain.PageSize, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, []string{second.ID}, ids(recipes))
}

func TestGetRecipesFavoriteFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "sam@example.com", "sam")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "onion", "pc")

	firstReq := createRequest(tagID, ingredientID)
	firstReq.Name = "Soup"
	first, err := f.svc.CreateRecipe(ctx, firstReq, authorID)
	require.NoError(t, err)

	secondReq := createRequest(tagID, ingredientID)
	secondReq.Name = "Salad"
	second, err := f.svc.CreateRecipe(ctx, secondReq, authorID)
	require.NoError(t, err)

	favorited := true
	_, _, err = f.svc.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: &favorited}, 1, domain.PageSize, "")
	assert.ErrorIs(t, err, domain.ErrFilterRequiresAuth)

	_, err = f.svc.AddFavorite(ctx, first.ID, authorID)
	require.NoError(t, err)

	recipes, count, err := f.svc.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: &favorited}, 1, domain.PageSize, authorID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, recipes, 1)
	assert.Equal(t, first.ID, recipes[0].ID)
	assert.True(t, recipes[0].IsFavorited)

	notFavorited := false
	recipes, count, err = f.svc.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: &notFavorited}, 1, domain.PageSize, authorID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, recipes, 1)
	assert.Equal(t, second.ID, recipes[0].ID)
}

func TestGetLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorID := f.registerUser(t, "tina@example.com", "tina")
	tagID := f.seedTag(t, "Dinner", "dinner")
	ingredientID := f.seedIngredient(t, "garlic", "clove")

	created, err := f.svc.CreateRecipe(ctx, createRequest(tagID, ingredientID), authorID)
	require.NoError(t, err)

	link, err := f.svc.GetLink(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(link.ShortLink, "/s/"+created.ID))

	_, err = f.svc.GetLink(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}
