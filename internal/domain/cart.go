package domain

// CartLine is one line of a diner's local cart. It lives only in the client
// state store and is never persisted; submission turns each line into a
// LineOrder.
type CartLine struct {
	Item                MenuItem `json:"menu_item"`
	Quantity            int      `json:"quantity"`
	SpecialInstructions string   `json:"special_instructions,omitempty"`
	TotalPrice          float64  `json:"total_price"`
}

// AddCartLine merges the addition into an existing line when both the item id
// and the instructions text match exactly. Instructions comparison is
// exact-string: two differently written notes stay separate lines.
func AddCartLine(lines []CartLine, item MenuItem, quantity int, instructions string) []CartLine {
	for i := range lines {
		if lines[i].Item.ID == item.ID && lines[i].SpecialInstructions == instructions {
			lines[i].Quantity += quantity
			lines[i].TotalPrice = float64(lines[i].Quantity) * item.Price
			return lines
		}
	}
	return append(lines, CartLine{
		Item:                item,
		Quantity:            quantity,
		SpecialInstructions: instructions,
		TotalPrice:          float64(quantity) * item.Price,
	})
}

// SetCartQuantity sets the quantity and recomputed total for every line of
// the given item. Zero and negative quantities are not special-cased here;
// routing those to removal is the caller's responsibility.
func SetCartQuantity(lines []CartLine, itemID string, quantity int) []CartLine {
	for i := range lines {
		if lines[i].Item.ID == itemID {
			lines[i].Quantity = quantity
			lines[i].TotalPrice = float64(quantity) * lines[i].Item.Price
		}
	}
	return lines
}

// RemoveCartItem removes every line of the item, all instruction variants
// included.
func RemoveCartItem(lines []CartLine, itemID string) []CartLine {
	kept := lines[:0]
	for _, line := range lines {
		if line.Item.ID != itemID {
			kept = append(kept, line)
		}
	}
	return kept
}

// CartTotal sums the line totals.
func CartTotal(lines []CartLine) float64 {
	total := 0.0
	for _, line := range lines {
		total += line.TotalPrice
	}
	return total
}

// CartCount sums the quantities across all lines.
func CartCount(lines []CartLine) int {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}
