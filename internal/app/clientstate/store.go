package clientstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tableside/internal/adapter/logger"
	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

// HydrationState makes "not yet restored" a distinct third state from
// "restored and empty" so redirect-on-missing-session logic cannot bounce a
// returning diner whose persisted state simply has not loaded yet.
type HydrationState int

const (
	HydrationPending HydrationState = iota
	HydrationReady
)

// snapshot is the persisted subset of the store. Loading flag and last error
// are transient and stay out of it.
type snapshot struct {
	User         *domain.SessionUser   `json:"current_user,omitempty"`
	Session      *domain.Session       `json:"current_session,omitempty"`
	TableNumber  string                `json:"table_number,omitempty"`
	Categories   []domain.MenuCategory `json:"menu_categories,omitempty"`
	Items        []domain.MenuItem     `json:"menu_items,omitempty"`
	Cart         []domain.CartLine     `json:"cart_items,omitempty"`
	SubOrderName string                `json:"sub_order_name,omitempty"`
}

// Store is the single authoritative client-side state for one diner device.
// Mutations are synchronous; each one saves the persisted subset through the
// configured storage backend.
type Store struct {
	mu      sync.Mutex
	storage interfaces.StateStorage
	logger  logger.Logger

	user         *domain.SessionUser
	session      *domain.Session
	tableNumber  string
	categories   []domain.MenuCategory
	items        []domain.MenuItem
	cart         []domain.CartLine
	subOrderName string
	loading      bool
	lastError    string
	hydration    HydrationState
}

func New(storage interfaces.StateStorage, lgr logger.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  lgr,
	}
}

// Hydrate restores the persisted state and flips the hydration flag exactly
// once. It must run before any view consults the store.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydration == HydrationReady {
		return nil
	}

	data, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted state: %w", err)
	}

	if len(data) > 0 {
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("failed to decode persisted state: %w", err)
		}
		s.user = snap.User
		s.session = snap.Session
		s.tableNumber = snap.TableNumber
		s.categories = snap.Categories
		s.items = snap.Items
		s.cart = snap.Cart
		s.subOrderName = snap.SubOrderName
	}

	s.hydration = HydrationReady
	return nil
}

func (s *Store) Hydration() HydrationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydration
}

// SessionState reports the session tri-state: known=false until hydration
// completes, then the (possibly nil) restored session.
func (s *Store) SessionState() (session *domain.Session, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydration != HydrationReady {
		return nil, false
	}
	return s.session, true
}

func (s *Store) User() *domain.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Store) Session() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Store) TableNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableNumber
}

func (s *Store) Menu() ([]domain.MenuCategory, []domain.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories, s.items
}

// MenuItem looks an item up in the menu snapshot.
func (s *Store) MenuItem(itemID string) (domain.MenuItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == itemID {
			return item, true
		}
	}
	return domain.MenuItem{}, false
}

// Cart returns a copy; callers never see later mutations.
func (s *Store) Cart() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]domain.CartLine, len(s.cart))
	copy(lines, s.cart)
	return lines
}

func (s *Store) SubOrderName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subOrderName
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Store) SetUser(user *domain.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.persist()
}

func (s *Store) SetSession(session *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.persist()
}

func (s *Store) SetTableNumber(tableNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableNumber = tableNumber
	s.persist()
}

func (s *Store) SetMenu(categories []domain.MenuCategory, items []domain.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = categories
	s.items = items
	s.persist()
}

func (s *Store) AddToCart(item domain.MenuItem, quantity int, instructions string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = domain.AddCartLine(s.cart, item, quantity, instructions)
	s.persist()
}

// UpdateCartQuantity sets the quantity for the item's lines; it does not
// touch instructions and does not special-case zero, the caller routes zero
// to RemoveFromCart.
func (s *Store) UpdateCartQuantity(itemID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = domain.SetCartQuantity(s.cart, itemID, quantity)
	s.persist()
}

// RemoveFromCart drops every line of the item, all instruction variants.
func (s *Store) RemoveFromCart(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = domain.RemoveCartItem(s.cart, itemID)
	s.persist()
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.persist()
}

func (s *Store) SetSubOrderName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subOrderName = name
	s.persist()
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = message
}

// Reset clears user, session, table and cart but keeps the menu snapshot
// (cacheable across sessions) and the hydration flag.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.session = nil
	s.tableNumber = ""
	s.cart = nil
	s.subOrderName = ""
	s.loading = false
	s.lastError = ""
	s.persist()
}

// persist saves the durable subset. A failed save keeps the in-memory
// mutation applied and is only logged; persistence is best-effort, the
// in-memory state stays authoritative.
func (s *Store) persist() {
	snap := snapshot{
		User:         s.user,
		Session:      s.session,
		TableNumber:  s.tableNumber,
		Categories:   s.categories,
		Items:        s.items,
		Cart:         s.cart,
		SubOrderName: s.subOrderName,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("state_encode_failed", "Failed to encode client state", "", nil, err)
		return
	}

	if err := s.storage.Save(context.Background(), data); err != nil {
		s.logger.Error("state_save_failed", "Failed to save client state", "", nil, err)
	}
}
