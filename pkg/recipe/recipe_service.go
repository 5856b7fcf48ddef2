package recipe

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/internal/utils"
	"Foodgram-Backend/internal/utils/storage"
	"Foodgram-Backend/pkg/catalog"
	"Foodgram-Backend/pkg/user"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, userID string) ([]domain.RecipeResponse, int64, error)
		GetRecipeDetail(ctx context.Context, recipeID string, userID string) (domain.RecipeResponse, error)
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID string, userID string) error

		AddFavorite(ctx context.Context, recipeID, userID string) (domain.RecipeShort, error)
		RemoveFavorite(ctx context.Context, recipeID, userID string) error
		AddToCart(ctx context.Context, recipeID, userID string) (domain.RecipeShort, error)
		RemoveFromCart(ctx context.Context, recipeID, userID string) error

		DownloadShoppingList(ctx context.Context, userID string) (string, error)
		GetLink(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error)
	}

	recipeService struct {
		recipeRepository  RecipeRepository
		catalogRepository catalog.CatalogRepository
		userRepository    user.UserRepository
		s3                storage.AwsS3
	}

	// composition holds a validated recipe payload with every reference
	// resolved against the catalog.
	composition struct {
		ingredients map[string]*entities.Ingredient
		tags        []*entities.Tag
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	catalogRepository catalog.CatalogRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:  recipeRepository,
		catalogRepository: catalogRepository,
		userRepository:    userRepository,
		s3:                s3,
	}
}

// validateComposition applies the recipe composition rules in order:
// ingredients present, ingredient ids resolvable (all missing ids reported
// together), tags present, tags unique, then numeric bounds.
func (s *recipeService) validateComposition(ctx context.Context, ingredients []domain.RecipeIngredientRequest, tags []string, cookingTime int) (*composition, error) {
	if len(ingredients) == 0 {
		return nil, domain.ErrMissingIngredients
	}

	ids := make([]string, 0, len(ingredients))
	seen := make(map[string]bool, len(ingredients))
	for _, item := range ingredients {
		if seen[item.ID] {
			return nil, domain.ErrDuplicateIngredients
		}
		seen[item.ID] = true
		ids = append(ids, item.ID)
	}

	existing, err := s.catalogRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]*entities.Ingredient, len(existing))
	for _, ingredient := range existing {
		resolved[ingredient.ID.String()] = ingredient
	}

	if len(resolved) != len(ids) {
		var missing []string
		for _, id := range ids {
			if _, ok := resolved[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("ingredients: ingredient with id %s does not exist", strings.Join(missing, ", "))
	}

	if len(tags) == 0 {
		return nil, domain.ErrMissingTags
	}

	seenTags := make(map[string]bool, len(tags))
	for _, id := range tags {
		if seenTags[id] {
			return nil, domain.ErrDuplicateTags
		}
		seenTags[id] = true
	}

	resolvedTags, err := s.catalogRepository.GetTagsByIDs(ctx, tags)
	if err != nil {
		return nil, err
	}
	if len(resolvedTags) != len(tags) {
		return nil, domain.ErrTagNotFound
	}

	if cookingTime < domain.MinCookingTime || cookingTime > domain.MaxCookingTime {
		return nil, domain.ErrCookingTimeOutOfRange
	}
	for _, item := range ingredients {
		if item.Amount < domain.AmountMin || item.Amount > domain.AmountMax {
			return nil, domain.ErrAmountOutOfRange
		}
	}

	return &composition{ingredients: resolved, tags: resolvedTags}, nil
}

func (s *recipeService) uploadImage(recipeID uuid.UUID, payload string) (string, error) {
	data, contentType, err := storage.ParseInlineImage(payload)
	if err != nil {
		return "", domain.ErrInvalidImagePayload
	}

	objectKey, err := s.s3.UploadBytes(
		fmt.Sprintf("recipe-%s", recipeID.String()),
		data,
		contentType,
		"recipes",
		storage.AllowImage...,
	)
	if err != nil {
		return "", err
	}
	return s.s3.GetPublicLinkKey(objectKey), nil
}

func (s *recipeService) toShort(recipe *entities.Recipe) domain.RecipeShort {
	return domain.RecipeShort{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

func (s *recipeService) toResponse(ctx context.Context, recipe *entities.Recipe, userID string) (domain.RecipeResponse, error) {
	isFavorited, err := s.recipeRepository.IsFavorited(ctx, userID, recipe.ID.String())
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	isInCart, err := s.recipeRepository.IsInCart(ctx, userID, recipe.ID.String())
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	author := domain.UserProfile{}
	if recipe.Author != nil {
		isSubscribed := false
		if userID != "" && userID != recipe.AuthorID.String() {
			subscribed, err := s.userRepository.IsSubscribed(ctx, userID, recipe.AuthorID.String())
			if err == nil {
				isSubscribed = subscribed
			}
		}
		author = domain.UserProfile{
			ID:           recipe.Author.ID.String(),
			Email:        recipe.Author.Email,
			Username:     recipe.Author.Username,
			FirstName:    recipe.Author.FirstName,
			LastName:     recipe.Author.LastName,
			Avatar:       recipe.Author.AvatarURL,
			IsSubscribed: isSubscribed,
		}
	}

	tags := make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, tag := range recipe.Tags {
		tags = append(tags, catalog.TagToResponse(tag))
	}

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(recipe.RecipeIngredients))
	for _, item := range recipe.RecipeIngredients {
		res := domain.RecipeIngredientResponse{
			ID:     item.IngredientID.String(),
			Amount: item.Amount,
		}
		if item.Ingredient != nil {
			res.Name = item.Ingredient.Name
			res.MeasurementUnit = item.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, res)
	}

	return domain.RecipeResponse{
		ID:               recipe.ID.String(),
		Author:           author,
		Name:             recipe.Name,
		Image:            recipe.ImageURL,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
		Tags:             tags,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
	}, nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, userID string) ([]domain.RecipeResponse, int64, error) {
	if (filter.IsFavorited != nil || filter.IsInShoppingCart != nil) && userID == "" {
		return nil, 0, domain.ErrFilterRequiresAuth
	}

	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]domain.RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		response, err := s.toResponse(ctx, recipe, userID)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, response)
	}
	return res, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID string, userID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	return s.toResponse(ctx, recipe, userID)
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	comp, err := s.validateComposition(ctx, req.Ingredients, req.Tags, req.CookingTime)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	authorUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	recipeID := uuid.New()

	imageURL, err := s.uploadImage(recipeID, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    authorUUID,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}

	ingredients := make([]entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		ingredients = append(ingredients, entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: comp.ingredients[item.ID].ID,
			Amount:       item.Amount,
		})
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, ingredients, comp.tags); err != nil {
		return domain.RecipeResponse{}, err
	}

	created, err := s.recipeRepository.GetRecipeByID(ctx, recipeID.String())
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return s.toResponse(ctx, created, userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	// Ownership is checked before payload validation.
	if recipe.AuthorID.String() != userID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	comp, err := s.validateComposition(ctx, req.Ingredients, req.Tags, req.CookingTime)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	if req.Image != "" {
		imageURL, err := s.uploadImage(recipe.ID, req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		recipe.ImageURL = imageURL
	}

	ingredients := make([]entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		ingredients = append(ingredients, entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipe.ID,
			IngredientID: comp.ingredients[item.ID].ID,
			Amount:       item.Amount,
		})
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, ingredients, comp.tags); err != nil {
		return domain.RecipeResponse{}, err
	}

	updated, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return s.toResponse(ctx, updated, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID string, userID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID.String() != userID {
		return domain.ErrNotRecipeAuthor
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID, userID string) (domain.RecipeShort, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShort{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShort{}, err
	}

	favorited, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if favorited {
		return domain.RecipeShort{}, fmt.Errorf("%w: %s", domain.ErrAlreadyFavorited, recipe.Name)
	}

	if err := s.recipeRepository.AddFavorite(ctx, userID, recipeID); err != nil {
		// Unique index backstop against concurrent adds.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShort{}, fmt.Errorf("%w: %s", domain.ErrAlreadyFavorited, recipe.Name)
		}
		return domain.RecipeShort{}, err
	}

	return s.toShort(recipe), nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, userID string) error {
	deleted, err := s.recipeRepository.RemoveFavorite(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrNotInFavorites
	}
	return nil
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, userID string) (domain.RecipeShort, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShort{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShort{}, err
	}

	inCart, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if inCart {
		return domain.RecipeShort{}, fmt.Errorf("%w: %s", domain.ErrAlreadyInCart, recipe.Name)
	}

	if err := s.recipeRepository.AddToCart(ctx, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShort{}, fmt.Errorf("%w: %s", domain.ErrAlreadyInCart, recipe.Name)
		}
		return domain.RecipeShort{}, err
	}

	return s.toShort(recipe), nil
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, userID string) error {
	deleted, err := s.recipeRepository.RemoveFromCart(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrNotInCart
	}
	return nil
}

// DownloadShoppingList renders the caller's aggregated shopping list as plain
// text, one "<name> - <sum> (<unit>)" line per (name, unit) group.
func (s *recipeService) DownloadShoppingList(ctx context.Context, userID string) (string, error) {
	items, err := s.recipeRepository.GetShoppingListItems(ctx, userID)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s - %d (%s)", item.Name, item.Total, item.MeasurementUnit))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *recipeService) GetLink(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortLinkResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortLinkResponse{}, err
	}

	return domain.ShortLinkResponse{
		ShortLink: fmt.Sprintf("%s/s/%s", utils.GetConfig("APP_URL"), recipe.ID.String()),
	}, nil
}
