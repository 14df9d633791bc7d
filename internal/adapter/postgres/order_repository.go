package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

type lineOrderRepository struct {
	db DB
}

func NewLineOrderRepository(db DB) interfaces.LineOrderRepository {
	return &lineOrderRepository{db: db}
}

func (r *lineOrderRepository) Create(ctx context.Context, order *domain.LineOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.OrderedAt.IsZero() {
		order.OrderedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO orders (id, session_id, sub_order_id, user_id, menu_item_id,
		                    menu_item_name, menu_item_price, quantity,
		                    special_instructions, total_price, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := r.db.Exec(ctx, query,
		order.ID, order.SessionID, order.SubOrderID, order.UserID, order.MenuItemID,
		order.MenuItemName, order.MenuItemPrice, order.Quantity,
		order.SpecialInstructions, order.TotalPrice, order.OrderedAt,
	); err != nil {
		return fmt.Errorf("failed to create line order: %w", err)
	}

	return nil
}

func (r *lineOrderRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.LineOrder, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, sub_order_id, user_id, menu_item_id,
		       menu_item_name, menu_item_price, quantity,
		       special_instructions, total_price, ordered_at
		FROM orders
		WHERE session_id = $1 AND %s
		ORDER BY ordered_at DESC
	`, notDeleted(""))

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.LineOrder
	for rows.Next() {
		var o domain.LineOrder
		if err := rows.Scan(&o.ID, &o.SessionID, &o.SubOrderID, &o.UserID, &o.MenuItemID,
			&o.MenuItemName, &o.MenuItemPrice, &o.Quantity,
			&o.SpecialInstructions, &o.TotalPrice, &o.OrderedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read line orders: %w", err)
	}

	return orders, nil
}
