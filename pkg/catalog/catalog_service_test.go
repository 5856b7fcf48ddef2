package catalog_test

import (
	"context"
	"testing"

	"Foodgram-Backend/domain"
	"Foodgram-Backend/internal/testutil"
	"Foodgram-Backend/pkg/catalog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogService(t *testing.T) catalog.CatalogService {
	db := testutil.NewTestDB(t)
	return catalog.NewCatalogService(catalog.NewCatalogRepository(db))
}

func TestSeedTagDerivesSlug(t *testing.T) {
	svc := newCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedTag(ctx, "Summer Salads", ""))

	tags, err := svc.GetTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Summer Salads", tags[0].Name)
	assert.Equal(t, "summer-salads", tags[0].Slug)
}

func TestSeedTagIsIdempotent(t *testing.T) {
	svc := newCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedTag(ctx, "Breakfast", "breakfast"))
	require.NoError(t, svc.SeedTag(ctx, "Breakfast", "breakfast"))

	tags, err := svc.GetTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestGetTagsSortedByName(t *testing.T) {
	svc := newCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedTag(ctx, "Lunch", "lunch"))
	require.NoError(t, svc.SeedTag(ctx, "Breakfast", "breakfast"))
	require.NoError(t, svc.SeedTag(ctx, "Dinner", "dinner"))

	tags, err := svc.GetTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "Breakfast", tags[0].Name)
	assert.Equal(t, "Dinner", tags[1].Name)
	assert.Equal(t, "Lunch", tags[2].Name)
}

func TestGetTagByIDNotFound(t *testing.T) {
	svc := newCatalogService(t)

	_, err := svc.GetTagByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrTagNotFound)
}

func TestGetIngredientsPrefixFilter(t *testing.T) {
	svc := newCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedIngredient(ctx, "salt", "g"))
	require.NoError(t, svc.SeedIngredient(ctx, "salmon", "g"))
	require.NoError(t, svc.SeedIngredient(ctx, "sugar", "g"))

	ingredients, err := svc.GetIngredients(ctx, "sal")
	require.NoError(t, err)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "salmon", ingredients[0].Name)
	assert.Equal(t, "salt", ingredients[1].Name)

	all, err := svc.GetIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetIngredientsPrefixIsCaseInsensitive(t *testing.T) {
	svc := newCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedIngredient(ctx, "Parmesan", "g"))

	ingredients, err := svc.GetIngredients(ctx, "par")
	require.NoError(t, err)
	require.Len(t, ingredients, 1)
	assert.Equal(t, "Parmesan", ingredients[0].Name)
}

func TestGetIngredientByIDNotFound(t *testing.T) {
	svc := newCatalogService(t)

	_, err := svc.GetIngredientByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}
