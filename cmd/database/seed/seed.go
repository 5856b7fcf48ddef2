package seed

import (
	"Foodgram-Backend/pkg/catalog"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"
)

type (
	ingredientRow struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}

	tagRow struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
)

// Seed loads reference data (ingredients and tags) from JSON files in
// dataDir. Rows already present are left untouched, so reruns are safe.
func Seed(db *gorm.DB, dataDir string) error {
	catalogService := catalog.NewCatalogService(catalog.NewCatalogRepository(db))
	ctx := context.Background()

	ingredients, err := loadIngredients(filepath.Join(dataDir, "ingredients.json"))
	if err != nil {
		return err
	}
	for _, row := range ingredients {
		if err := catalogService.SeedIngredient(ctx, row.Name, row.MeasurementUnit); err != nil {
			return fmt.Errorf("seed ingredient %q: %w", row.Name, err)
		}
	}

	tags, err := loadTags(filepath.Join(dataDir, "tags.json"))
	if err != nil {
		return err
	}
	for _, row := range tags {
		if err := catalogService.SeedTag(ctx, row.Name, row.Slug); err != nil {
			return fmt.Errorf("seed tag %q: %w", row.Name, err)
		}
	}

	fmt.Printf("Seeded %d ingredients and %d tags\n", len(ingredients), len(tags))
	return nil
}

func loadIngredients(path string) ([]ingredientRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rows []ingredientRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func loadTags(path string) ([]tagRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rows []tagRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
