package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLite cannot evaluate uuid_generate_v4() column defaults, so the test
// schema mirrors the production tables without them. The services always set
// row ids themselves, so the defaults are never exercised at runtime either.
type (
	testUser struct {
		ID           uuid.UUID `gorm:"type:uuid;primary_key"`
		Email        string    `gorm:"size:254;uniqueIndex;not null"`
		Username     string    `gorm:"size:150;uniqueIndex;not null"`
		FirstName    string    `gorm:"size:150"`
		LastName     string    `gorm:"size:150"`
		PasswordHash string    `gorm:"not null"`
		AvatarURL    string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	testSubscription struct {
		ID               uuid.UUID `gorm:"type:uuid;primary_key"`
		UserID           uuid.UUID `gorm:"uniqueIndex:idx_user_subscription"`
		SubscribedUserID uuid.UUID `gorm:"uniqueIndex:idx_user_subscription"`
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	testTag struct {
		ID   uuid.UUID `gorm:"type:uuid;primary_key"`
		Name string    `gorm:"size:32;uniqueIndex;not null"`
		Slug string    `gorm:"size:32;uniqueIndex;not null"`
	}

	testIngredient struct {
		ID              uuid.UUID `gorm:"type:uuid;primary_key"`
		Name            string    `gorm:"size:128;uniqueIndex;not null"`
		MeasurementUnit string    `gorm:"size:64;not null"`
	}

	testRecipe struct {
		ID          uuid.UUID `gorm:"type:uuid;primary_key"`
		AuthorID    uuid.UUID `gorm:"index;not null"`
		Name        string    `gorm:"size:256;not null"`
		ImageURL    string
		Text        string `gorm:"type:text"`
		CookingTime int    `gorm:"not null"`
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	testRecipeIngredient struct {
		ID           uuid.UUID `gorm:"type:uuid;primary_key"`
		RecipeID     uuid.UUID `gorm:"uniqueIndex:idx_recipe_ingredient"`
		IngredientID uuid.UUID `gorm:"uniqueIndex:idx_recipe_ingredient"`
		Amount       int       `gorm:"not null"`
	}

	testRecipeTag struct {
		RecipeID uuid.UUID `gorm:"type:uuid;primaryKey"`
		TagID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	}

	testFavorite struct {
		ID        uuid.UUID `gorm:"type:uuid;primary_key"`
		UserID    uuid.UUID `gorm:"uniqueIndex:idx_user_favorite"`
		RecipeID  uuid.UUID `gorm:"uniqueIndex:idx_user_favorite"`
		CreatedAt time.Time
	}

	testShoppingCart struct {
		ID       uuid.UUID `gorm:"type:uuid;primary_key"`
		UserID   uuid.UUID `gorm:"uniqueIndex:idx_user_cart"`
		RecipeID uuid.UUID `gorm:"uniqueIndex:idx_user_cart"`
	}
)

func (testUser) TableName() string             { return "users" }
func (testSubscription) TableName() string     { return "subscriptions" }
func (testTag) TableName() string              { return "tags" }
func (testIngredient) TableName() string       { return "ingredients" }
func (testRecipe) TableName() string           { return "recipes" }
func (testRecipeIngredient) TableName() string { return "recipe_ingredients" }
func (testRecipeTag) TableName() string        { return "recipe_tags" }
func (testFavorite) TableName() string         { return "favorites" }
func (testShoppingCart) TableName() string     { return "shopping_carts" }

// NewTestDB opens an in-memory SQLite database with the full schema.
// TranslateError is on, matching the production connection.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pool connection would see its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&testUser{},
		&testSubscription{},
		&testTag{},
		&testIngredient{},
		&testRecipe{},
		&testRecipeIngredient{},
		&testRecipeTag{},
		&testFavorite{},
		&testShoppingCart{},
	))
	return db
}
