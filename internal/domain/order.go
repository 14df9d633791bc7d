package domain

import "time"

// LineOrder is one menu-item quantity within a sub-order. The menu item name
// and price are a point-in-time copy, never a live reference. Line orders are
// insert-only; soft delete is the only mutation.
type LineOrder struct {
	ID                  string     `json:"id"`
	SessionID           string     `json:"session_id"`
	SubOrderID          string     `json:"sub_order_id"`
	UserID              string     `json:"user_id"`
	MenuItemID          string     `json:"menu_item_id"`
	MenuItemName        string     `json:"menu_item_name"`
	MenuItemPrice       float64    `json:"menu_item_price"`
	Quantity            int        `json:"quantity"`
	SpecialInstructions *string    `json:"special_instructions,omitempty"`
	TotalPrice          float64    `json:"total_price"`
	OrderedAt           time.Time  `json:"ordered_at"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`
}
