package sync

import (
	"context"
	"sync"
	"time"

	"tableside/internal/adapter/logger"
	"tableside/internal/interfaces"
)

type State int

const (
	StateSubscribing State = iota
	StateSynced
	StateError
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateSynced:
		return "synced"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Controller keeps one session view in sync with the backend. Any change
// event on either entity triggers the identical full re-fetch-and-replace;
// there is no incremental merging. Re-fetches can complete out of order, so
// each fetch takes a monotonic ticket and a completed fetch older than the
// last applied one is discarded.
type Controller struct {
	sessionID string
	sessions  interfaces.SessionRepository
	orders    interfaces.LineOrderRepository
	consumer  interfaces.ChangeConsumer
	logger    logger.Logger

	mu       sync.Mutex
	state    State
	snapshot interfaces.BoardSnapshot
	nextSeq  uint64
	applied  uint64
	watchers map[chan interfaces.BoardSnapshot]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewController(
	sessionID string,
	sessions interfaces.SessionRepository,
	orders interfaces.LineOrderRepository,
	consumer interfaces.ChangeConsumer,
	lgr logger.Logger,
) *Controller {
	return &Controller{
		sessionID: sessionID,
		sessions:  sessions,
		orders:    orders,
		consumer:  consumer,
		logger:    lgr,
		state:     StateSubscribing,
		watchers:  make(map[chan interfaces.BoardSnapshot]struct{}),
	}
}

// Start performs the initial synchronous fetch, then opens the two
// session-scoped subscriptions (line orders and session record). A failed
// initial fetch leaves the controller in the error state but the
// subscriptions still open; the next change event retries the fetch.
func (c *Controller) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	err := c.Refresh(ctx)

	for _, entity := range []interfaces.ChangeEntity{interfaces.EntityLineOrders, interfaces.EntitySessions} {
		entity := entity
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			consumeErr := c.consumer.Consume(runCtx, entity, c.sessionID, c.onChange)
			if consumeErr != nil && runCtx.Err() == nil {
				c.setState(StateError)
				c.logger.Error("subscription_failed", "Change subscription dropped", c.sessionID, map[string]interface{}{
					"entity": string(entity),
				}, consumeErr)
			}
		}()
	}

	return err
}

// Stop tears down both subscriptions and waits for them to exit.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.watchers {
		close(ch)
		delete(c.watchers, ch)
	}
}

func (c *Controller) onChange(ctx context.Context, ev interfaces.ChangeEvent) {
	c.logger.Debug("change_received", "Change event received, re-fetching", c.sessionID, map[string]interface{}{
		"entity": string(ev.Entity),
		"op":     string(ev.Op),
	})
	_ = c.Refresh(ctx)
}

// Refresh re-fetches the session record and the session's line orders
// (newest-first) and replaces the snapshot, unless a younger fetch already
// completed.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.nextSeq++
	seq := c.nextSeq
	c.mu.Unlock()

	orders, err := c.orders.ListBySession(ctx, c.sessionID)
	if err != nil {
		c.setState(StateError)
		c.logger.Error("sync_fetch_failed", "Failed to fetch line orders", c.sessionID, nil, err)
		return err
	}

	session, err := c.sessions.FindByID(ctx, c.sessionID)
	if err != nil {
		c.setState(StateError)
		c.logger.Error("sync_fetch_failed", "Failed to fetch session", c.sessionID, nil, err)
		return err
	}

	snap := interfaces.BoardSnapshot{
		Session:   session,
		Orders:    orders,
		FetchedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	if seq < c.applied {
		// A later-triggered fetch already resolved; the most recently
		// completed one stays authoritative.
		c.mu.Unlock()
		return nil
	}
	c.applied = seq
	c.snapshot = snap
	c.state = StateSynced
	for ch := range c.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
	c.mu.Unlock()

	return nil
}

// Snapshot returns the last applied aggregated view and the sync state.
func (c *Controller) Snapshot() (interfaces.BoardSnapshot, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.state
}

// Watch registers a channel receiving every applied snapshot. The returned
// cancel func unregisters it. Slow watchers miss intermediate snapshots
// rather than blocking the controller.
func (c *Controller) Watch() (<-chan interfaces.BoardSnapshot, func()) {
	ch := make(chan interfaces.BoardSnapshot, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.watchers[ch]; ok {
			delete(c.watchers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}
