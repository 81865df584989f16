package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mwhitt/artisan-toolbox/pkg/artisan"
)

// RecipeByOutput retrieves the recipe producing the given item, with its
// component list enriched with each component's catalog name and base
// rarity. Returns nil when no recipe exists.
func (s *CatalogStore) RecipeByOutput(ctx context.Context, outputItemID int64) (*artisan.Recipe, error) {
	recipe := &artisan.Recipe{OutputItemID: outputItemID}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, profession, level_required, base_crafting_fee
		FROM recipes WHERE output_item_id = ?
	`, outputItemID).Scan(
		&recipe.ID,
		&recipe.Profession,
		&recipe.LevelRequired,
		&recipe.BaseFee,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying recipe: %w", err)
	}

	components, err := s.recipeComponents(ctx, recipe.ID)
	if err != nil {
		return nil, err
	}
	recipe.Components = components

	return recipe, nil
}

// recipeComponents retrieves a recipe's components joined with the items
// table for names and base rarities, in insertion order.
func (s *CatalogStore) recipeComponents(ctx context.Context, recipeID int64) ([]artisan.RecipeComponent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rc.item_id, i.name, rc.quantity, rc.component_type, i.rarity, rc.is_optional
		FROM recipe_components rc
		JOIN items i ON rc.item_id = i.id
		WHERE rc.recipe_id = ?
		ORDER BY rc.id
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("querying recipe components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var components []artisan.RecipeComponent
	for rows.Next() {
		var (
			c           artisan.RecipeComponent
			compType    string
			baseRarity  string
			optionalInt int
		)
		if err := rows.Scan(&c.ItemID, &c.Name, &c.Quantity, &compType, &baseRarity, &optionalInt); err != nil {
			return nil, fmt.Errorf("scanning component: %w", err)
		}
		c.Type = artisan.ParseComponentType(compType)
		c.BaseRarity = artisan.ParseRarity(baseRarity)
		c.Optional = optionalInt != 0
		components = append(components, c)
	}

	return components, rows.Err()
}

// BulkInsertRecipes inserts multiple recipes with their components in a
// transaction, replacing any existing recipe for the same output item and
// profession.
func (s *CatalogStore) BulkInsertRecipes(ctx context.Context, recipes []artisan.Recipe) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		recipeStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO recipes
			(output_item_id, profession, level_required, base_crafting_fee, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
		`)
		if err != nil {
			return fmt.Errorf("preparing recipe statement: %w", err)
		}
		defer func() { _ = recipeStmt.Close() }()

		compStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO recipe_components
			(recipe_id, item_id, quantity, component_type, is_optional)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing component statement: %w", err)
		}
		defer func() { _ = compStmt.Close() }()

		for _, r := range recipes {
			res, err := recipeStmt.ExecContext(ctx,
				r.OutputItemID, r.Profession, r.LevelRequired, r.BaseFee,
			)
			if err != nil {
				return fmt.Errorf("inserting recipe for item %d: %w", r.OutputItemID, err)
			}

			recipeID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("recipe id for item %d: %w", r.OutputItemID, err)
			}

			for _, c := range r.Components {
				optional := 0
				if c.Optional {
					optional = 1
				}
				_, err := compStmt.ExecContext(ctx,
					recipeID, c.ItemID, c.Quantity, string(c.Type), optional,
				)
				if err != nil {
					return fmt.Errorf("inserting component %d for item %d: %w", c.ItemID, r.OutputItemID, err)
				}
			}
		}

		return nil
	})
}

// CountRecipes returns the total number of recipes.
func (s *CatalogStore) CountRecipes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recipes: %w", err)
	}
	return count, nil
}

// ClearCatalog removes all recipe data (for re-sync). Items are kept;
// components cascade with their recipes.
func (s *CatalogStore) ClearCatalog(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM recipes`)
		return err
	})
}
