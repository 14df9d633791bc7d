package postgres

import (
	"context"
	"fmt"

	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

type menuRepository struct {
	db DB
}

func NewMenuRepository(db DB) interfaces.MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) ListActiveCategories(ctx context.Context) ([]domain.MenuCategory, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, sort_order, is_active, created_at
		FROM menu_categories
		WHERE is_active = TRUE AND %s
		ORDER BY sort_order
	`, notDeleted(""))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.MenuCategory
	for rows.Next() {
		var c domain.MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read menu categories: %w", err)
	}

	return categories, nil
}

// ListAvailableItems hides an item whenever its parent category is inactive
// or soft-deleted, even if the item itself is still flagged available.
func (r *menuRepository) ListAvailableItems(ctx context.Context) ([]domain.MenuItem, error) {
	query := fmt.Sprintf(`
		SELECT i.id, i.category_id, i.name, i.description, i.price, i.image_url,
		       i.is_available, i.sort_order, i.created_at, i.updated_at
		FROM menu_items i
		JOIN menu_categories c ON c.id = i.category_id AND c.is_active = TRUE AND %s
		WHERE i.is_available = TRUE AND %s
		ORDER BY i.sort_order
	`, notDeleted("c"), notDeleted("i"))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		var i domain.MenuItem
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Description, &i.Price, &i.ImageURL,
			&i.IsAvailable, &i.SortOrder, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read menu items: %w", err)
	}

	return items, nil
}
