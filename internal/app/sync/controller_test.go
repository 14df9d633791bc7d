package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/adapter/logger"
	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

type syncSessionRepo struct {
	mu      stdsync.Mutex
	session *domain.Session
	err     error
	calls   int
}

func (f *syncSessionRepo) Create(ctx context.Context, tableID string) (*domain.Session, error) {
	panic("not used")
}

func (f *syncSessionRepo) FindActiveByTable(ctx context.Context, tableID string) (*domain.Session, error) {
	panic("not used")
}

func (f *syncSessionRepo) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.session
	return &copied, nil
}

func (f *syncSessionRepo) ReplaceSubOrders(ctx context.Context, sessionID string, subOrders []domain.SubOrder) (*domain.Session, error) {
	panic("not used")
}

func (f *syncSessionRepo) CreateUser(ctx context.Context, sessionID, phoneNumber, userName string) (*domain.SessionUser, error) {
	panic("not used")
}

func (f *syncSessionRepo) findCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// syncOrderRepo can hold a ListBySession call open until released, which lets
// tests interleave two in-flight fetches.
type syncOrderRepo struct {
	mu     stdsync.Mutex
	orders []domain.LineOrder
	calls  int

	blockOn int // 1-based call index to hold open; 0 never blocks
	release chan struct{}
}

func (f *syncOrderRepo) Create(ctx context.Context, order *domain.LineOrder) error {
	panic("not used")
}

func (f *syncOrderRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.LineOrder, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	orders := make([]domain.LineOrder, len(f.orders))
	copy(orders, f.orders)
	f.mu.Unlock()

	// The copy above is taken before the hold, so a stalled call returns
	// the list as it was when the call started.
	if f.blockOn > 0 && call == f.blockOn {
		<-f.release
	}
	return orders, nil
}

func (f *syncOrderRepo) setOrders(orders []domain.LineOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

func (f *syncOrderRepo) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingConsumer hands the registered handlers back to the test so it can
// inject change events directly.
type recordingConsumer struct {
	mu       stdsync.Mutex
	handlers map[interfaces.ChangeEntity]interfaces.ChangeHandler
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{handlers: make(map[interfaces.ChangeEntity]interfaces.ChangeHandler)}
}

func (f *recordingConsumer) Consume(ctx context.Context, entity interfaces.ChangeEntity, sessionID string, handler interfaces.ChangeHandler) error {
	f.mu.Lock()
	f.handlers[entity] = handler
	f.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (f *recordingConsumer) emit(ctx context.Context, ev interfaces.ChangeEvent) {
	f.mu.Lock()
	handler := f.handlers[ev.Entity]
	f.mu.Unlock()
	if handler != nil {
		handler(ctx, ev)
	}
}

func (f *recordingConsumer) waitRegistered(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		n := len(f.handlers)
		f.mu.Unlock()
		if n == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("subscriptions were not registered")
}

func testSession() *domain.Session {
	return &domain.Session{ID: "sess-1", Status: domain.SessionStatusActive}
}

func TestControllerStartFetchesInitialSnapshot(t *testing.T) {
	sessions := &syncSessionRepo{session: testSession()}
	orders := &syncOrderRepo{orders: []domain.LineOrder{{ID: "o1"}}}
	consumer := newRecordingConsumer()

	c := NewController("sess-1", sessions, orders, consumer, logger.NewNop())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	snap, state := c.Snapshot()
	assert.Equal(t, StateSynced, state)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "sess-1", snap.Session.ID)
	require.Len(t, snap.Orders, 1)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestControllerChangeEventTriggersRefetch(t *testing.T) {
	sessions := &syncSessionRepo{session: testSession()}
	orders := &syncOrderRepo{orders: []domain.LineOrder{{ID: "o1"}}}
	consumer := newRecordingConsumer()

	c := NewController("sess-1", sessions, orders, consumer, logger.NewNop())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	consumer.waitRegistered(t)

	orders.setOrders([]domain.LineOrder{{ID: "o2"}, {ID: "o1"}})
	consumer.emit(context.Background(), interfaces.ChangeEvent{
		Entity:    interfaces.EntityLineOrders,
		SessionID: "sess-1",
		Op:        interfaces.ChangeOpInsert,
	})

	snap, state := c.Snapshot()
	assert.Equal(t, StateSynced, state)
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, "o2", snap.Orders[0].ID)
}

func TestControllerDuplicateEventsEachRefetch(t *testing.T) {
	sessions := &syncSessionRepo{session: testSession()}
	orders := &syncOrderRepo{}
	consumer := newRecordingConsumer()

	c := NewController("sess-1", sessions, orders, consumer, logger.NewNop())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	consumer.waitRegistered(t)

	before, _ := c.Snapshot()
	fetchesBefore := orders.listCalls()

	// The same logical change arriving on both subscriptions re-fetches
	// twice; re-applying an identical snapshot is harmless.
	ev := interfaces.ChangeEvent{SessionID: "sess-1", Op: interfaces.ChangeOpUpdate}
	ev.Entity = interfaces.EntityLineOrders
	consumer.emit(context.Background(), ev)
	ev.Entity = interfaces.EntitySessions
	consumer.emit(context.Background(), ev)

	assert.Equal(t, fetchesBefore+2, orders.listCalls())

	after, state := c.Snapshot()
	assert.Equal(t, StateSynced, state)
	assert.Equal(t, before.Session.ID, after.Session.ID)
	assert.Equal(t, before.Orders, after.Orders)
}

func TestControllerDiscardsStaleFetch(t *testing.T) {
	sessions := &syncSessionRepo{session: testSession()}
	orders := &syncOrderRepo{
		orders:  []domain.LineOrder{{ID: "old"}},
		blockOn: 1,
		release: make(chan struct{}),
	}
	consumer := newRecordingConsumer()

	c := NewController("sess-1", sessions, orders, consumer, logger.NewNop())

	// First fetch starts and stalls holding the old list.
	done := make(chan struct{})
	go func() {
		_ = c.Refresh(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for orders.listCalls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A younger fetch completes first with the new list.
	orders.setOrders([]domain.LineOrder{{ID: "new"}, {ID: "old"}})
	require.NoError(t, c.Refresh(context.Background()))

	// The stale fetch resolves afterwards and must not roll the view back.
	close(orders.release)
	<-done

	snap, state := c.Snapshot()
	assert.Equal(t, StateSynced, state)
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, "new", snap.Orders[0].ID)
}

func TestControllerErrorStateRecoversOnNextRefresh(t *testing.T) {
	sessions := &syncSessionRepo{session: testSession(), err: errors.New("db down")}
	orders := &syncOrderRepo{}

	c := NewController("sess-1", sessions, orders, newRecordingConsumer(), logger.NewNop())

	require.Error(t, c.Refresh(context.Background()))
	_, state := c.Snapshot()
	assert.Equal(t, StateError, state)

	sessions.mu.Lock()
	sessions.err = nil
	sessions.mu.Unlock()

	require.NoError(t, c.Refresh(context.Background()))
	_, state = c.Snapshot()
	assert.Equal(t, StateSynced, state)
}

func TestControllerWatch(t *testing.T) {
	sessions := &syncSessionRepo{session: testSession()}
	orders := &syncOrderRepo{orders: []domain.LineOrder{{ID: "o1"}}}

	c := NewController("sess-1", sessions, orders, newRecordingConsumer(), logger.NewNop())

	ch, cancel := c.Watch()
	require.NoError(t, c.Refresh(context.Background()))

	select {
	case snap := <-ch:
		require.Len(t, snap.Orders, 1)
	case <-time.After(time.Second):
		t.Fatal("watcher never received the snapshot")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}
