package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tableside/internal/adapter/logger"
	"tableside/internal/app/clientstate"
	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

// DinerHandler is the HTTP surface of one diner device: join a table, verify,
// browse the menu, mutate the cart, and submit.
type DinerHandler struct {
	join     interfaces.JoinService
	checkout interfaces.CheckoutService
	state    *clientstate.Store
	logger   logger.Logger
}

func NewDinerHandler(join interfaces.JoinService, checkout interfaces.CheckoutService, state *clientstate.Store, lgr logger.Logger) *DinerHandler {
	return &DinerHandler{
		join:     join,
		checkout: checkout,
		state:    state,
		logger:   lgr,
	}
}

type scanRequest struct {
	ScanToken   string `json:"scan_token,omitempty"`
	TableNumber string `json:"table_number,omitempty"`
}

type scanResponse struct {
	SessionID   string `json:"session_id"`
	TableNumber string `json:"table_number"`
	Status      string `json:"status"`
}

type verifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code,omitempty"`
	UserName    string `json:"user_name,omitempty"`
}

type cartItemRequest struct {
	MenuItemID          string `json:"menu_item_id"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type cartResponse struct {
	Items      []domain.CartLine `json:"items"`
	TotalPrice float64           `json:"total_price"`
	TotalItems int               `json:"total_items"`
}

type checkoutRequest struct {
	SubOrderName string `json:"sub_order_name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *DinerHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		session *domain.Session
		table   *domain.Table
		err     error
	)
	switch {
	case req.ScanToken != "":
		session, table, err = h.join.Scan(r.Context(), req.ScanToken)
	case req.TableNumber != "":
		session, table, err = h.join.JoinByTableNumber(r.Context(), req.TableNumber)
	default:
		h.respondError(w, http.StatusBadRequest, "scan_token or table_number is required")
		return
	}
	if err != nil {
		h.respondServiceError(w, "scan_failed", err)
		return
	}

	h.respondJSON(w, http.StatusOK, scanResponse{
		SessionID:   session.ID,
		TableNumber: table.TableNumber,
		Status:      string(session.Status),
	})
}

func (h *DinerHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.join.RequestCode(r.Context(), req.PhoneNumber); err != nil {
		h.respondServiceError(w, "code_request_failed", err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

func (h *DinerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.join.Verify(r.Context(), req.PhoneNumber, req.Code, req.UserName)
	if err != nil {
		h.respondServiceError(w, "verification_failed", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]any{
		"user_id":     user.ID,
		"user_name":   user.UserName,
		"is_verified": user.IsVerified,
	})
}

func (h *DinerHandler) Menu(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	categories, items := h.state.Menu()
	if len(categories) == 0 && len(items) == 0 {
		if err := h.join.LoadMenu(r.Context()); err != nil {
			h.respondServiceError(w, "menu_load_failed", err)
			return
		}
		categories, items = h.state.Menu()
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"items":      items,
	})
}

// Cart serves GET (view) and DELETE (clear) on /cart.
func (h *DinerHandler) Cart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.respondCart(w)
	case http.MethodDelete:
		h.state.ClearCart()
		h.respondCart(w)
	default:
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// CartItems serves POST /cart/items and PATCH/DELETE /cart/items/{id}.
func (h *DinerHandler) CartItems(w http.ResponseWriter, r *http.Request) {
	itemID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/cart/items"), "/")

	switch {
	case r.Method == http.MethodPost && itemID == "":
		h.addCartItem(w, r)
	case r.Method == http.MethodPatch && itemID != "":
		h.updateCartItem(w, r, itemID)
	case r.Method == http.MethodDelete && itemID != "":
		h.state.RemoveFromCart(itemID)
		h.respondCart(w)
	default:
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *DinerHandler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		h.respondError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	item, ok := h.state.MenuItem(req.MenuItemID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "menu item not found")
		return
	}

	h.state.AddToCart(item, req.Quantity, req.SpecialInstructions)
	h.respondCart(w)
}

func (h *DinerHandler) updateCartItem(w http.ResponseWriter, r *http.Request, itemID string) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Zero or negative quantity routes to removal; the store itself does
	// not special-case it.
	if req.Quantity <= 0 {
		h.state.RemoveFromCart(itemID)
	} else {
		h.state.UpdateCartQuantity(itemID, req.Quantity)
	}
	h.respondCart(w)
}

func (h *DinerHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	subOrder, err := h.checkout.PlaceOrder(r.Context(), req.SubOrderName)
	if err != nil {
		h.respondServiceError(w, "checkout_failed", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, subOrder)
}

func (h *DinerHandler) respondCart(w http.ResponseWriter) {
	cart := h.state.Cart()
	h.respondJSON(w, http.StatusOK, cartResponse{
		Items:      cart,
		TotalPrice: domain.CartTotal(cart),
		TotalItems: domain.CartCount(cart),
	})
}

// respondServiceError maps domain errors to statuses. Validation errors pass
// their message through; backend failures log the detail and surface a
// generic message.
func (h *DinerHandler) respondServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrTooManyAttempts),
		errors.Is(err, domain.ErrNoSession):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(action, "Request failed", "", nil, err)
		h.respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func (h *DinerHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}

func (h *DinerHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
