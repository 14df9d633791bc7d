package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tableside/internal/adapter/logger"
	"tableside/internal/app/clientstate"
	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

// Service turns a diner's cart into one sub-order plus its line orders. The
// sequence is several physical writes treated as one logical unit of work:
// nothing is rolled back on failure, retries append distinguishable rows,
// and the cart is cleared only after every write succeeded.
type Service struct {
	state     *clientstate.Store
	sessions  interfaces.SessionRepository
	orders    interfaces.LineOrderRepository
	publisher interfaces.ChangePublisher
	logger    logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(
	state *clientstate.Store,
	sessions interfaces.SessionRepository,
	orders interfaces.LineOrderRepository,
	publisher interfaces.ChangePublisher,
	lgr logger.Logger,
) *Service {
	return &Service{
		state:     state,
		sessions:  sessions,
		orders:    orders,
		publisher: publisher,
		logger:    lgr,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *Service) PlaceOrder(ctx context.Context, subOrderName string) (*domain.SubOrder, error) {
	cart := s.state.Cart()
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	subOrderName = strings.TrimSpace(subOrderName)
	if subOrderName == "" {
		return nil, domain.ErrNameRequired
	}

	user := s.state.User()
	session := s.state.Session()
	if user == nil || session == nil {
		return nil, domain.ErrNoSession
	}

	s.state.SetLoading(true)
	defer s.state.SetLoading(false)

	s.state.SetSubOrderName(subOrderName)

	// The id is generated client-side so the line orders written below can
	// reference the sub-order within the same logical transaction.
	subOrder := domain.NewSubOrder(s.newID(), user, subOrderName, domain.CartTotal(cart), s.now())

	// Read-append-replace on the embedded list. No lock and no concurrency
	// token: two diners in the same window can race, and the later write
	// wins the whole list.
	current, err := s.sessions.FindByID(ctx, session.ID)
	if err != nil {
		s.fail("session_read_failed", "Failed to read session before submit", session.ID, err)
		return nil, err
	}

	updated, err := s.sessions.ReplaceSubOrders(ctx, session.ID, append(current.SubOrders, subOrder))
	if err != nil {
		s.fail("sub_orders_write_failed", "Failed to write sub-order list", session.ID, err)
		return nil, err
	}
	s.state.SetSession(updated)

	for _, line := range cart {
		var instructions *string
		if line.SpecialInstructions != "" {
			text := line.SpecialInstructions
			instructions = &text
		}

		order := domain.LineOrder{
			ID:                  s.newID(),
			SessionID:           session.ID,
			SubOrderID:          subOrder.ID,
			UserID:              user.ID,
			MenuItemID:          line.Item.ID,
			MenuItemName:        line.Item.Name,
			MenuItemPrice:       line.Item.Price,
			Quantity:            line.Quantity,
			SpecialInstructions: instructions,
			TotalPrice:          line.TotalPrice,
			OrderedAt:           s.now(),
		}

		// A failure here leaves the earlier writes in place and the cart
		// untouched; the diner retries without re-entering items.
		if err := s.orders.Create(ctx, &order); err != nil {
			s.fail("line_order_write_failed", "Failed to write line order", session.ID, err)
			return nil, err
		}
	}

	s.state.ClearCart()

	s.publishChange(ctx, interfaces.EntitySessions, session.ID, interfaces.ChangeOpUpdate)
	s.publishChange(ctx, interfaces.EntityLineOrders, session.ID, interfaces.ChangeOpInsert)

	s.logger.Info("sub_order_placed", "Sub-order submitted", session.ID, map[string]interface{}{
		"sub_order_id":   subOrder.ID,
		"sub_order_name": subOrder.SubOrderName,
		"total_amount":   subOrder.TotalAmount,
		"line_count":     len(cart),
	})

	return &subOrder, nil
}

// publishChange is best-effort: the writes already happened, so a publish
// failure must not fail the submission and trigger a duplicating retry.
func (s *Service) publishChange(ctx context.Context, entity interfaces.ChangeEntity, sessionID string, op interfaces.ChangeOp) {
	ev := interfaces.ChangeEvent{
		Entity:     entity,
		SessionID:  sessionID,
		Op:         op,
		OccurredAt: s.now(),
	}
	if err := s.publisher.PublishChange(ctx, ev); err != nil {
		s.logger.Error("change_publish_failed", "Failed to publish change event", sessionID, map[string]interface{}{
			"entity": string(entity),
		}, err)
	}
}

func (s *Service) fail(action, message, sessionID string, err error) {
	s.state.SetError("Failed to place order. Please try again.")
	s.logger.Error(action, message, sessionID, nil, err)
}
