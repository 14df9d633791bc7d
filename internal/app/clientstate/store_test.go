package clientstate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/adapter/logger"
	"tableside/internal/domain"
)

// memStorage is an in-memory StateStorage.
type memStorage struct {
	mu   sync.Mutex
	data []byte
}

func (m *memStorage) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memStorage) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func newTestStore(t *testing.T) (*Store, *memStorage) {
	t.Helper()
	storage := &memStorage{}
	store := New(storage, logger.NewNop())
	require.NoError(t, store.Hydrate(context.Background()))
	return store, storage
}

func testItem(id string, price float64) domain.MenuItem {
	return domain.MenuItem{ID: id, Name: "Item " + id, Price: price, IsAvailable: true}
}

func TestSessionStateBeforeHydration(t *testing.T) {
	store := New(&memStorage{}, logger.NewNop())

	assert.Equal(t, HydrationPending, store.Hydration())

	session, known := store.SessionState()
	assert.Nil(t, session)
	assert.False(t, known, "session must be unknown before hydration, not known-empty")
}

func TestHydrateEmptyStorage(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Equal(t, HydrationReady, store.Hydration())

	session, known := store.SessionState()
	assert.Nil(t, session)
	assert.True(t, known)
}

func TestHydrateRestoresPersistedState(t *testing.T) {
	first, storage := newTestStore(t)

	first.SetSession(&domain.Session{ID: "sess-1", Status: domain.SessionStatusActive})
	first.SetUser(&domain.SessionUser{ID: "user-1", UserName: "Aliya"})
	first.SetTableNumber("7")
	first.AddToCart(testItem("burger", 10.00), 2, "")
	first.SetSubOrderName("Aliya's Order")

	// A fresh store over the same storage models a process restart.
	second := New(storage, logger.NewNop())
	require.NoError(t, second.Hydrate(context.Background()))

	session, known := second.SessionState()
	require.True(t, known)
	require.NotNil(t, session)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, "user-1", second.User().ID)
	assert.Equal(t, "7", second.TableNumber())
	assert.Equal(t, "Aliya's Order", second.SubOrderName())

	cart := second.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, 20.00, cart[0].TotalPrice)
}

func TestHydrateRunsOnce(t *testing.T) {
	store, storage := newTestStore(t)
	store.SetTableNumber("3")

	// Clearing the storage after hydration must not matter; the second
	// Hydrate is a no-op.
	storage.data = nil
	require.NoError(t, store.Hydrate(context.Background()))
	assert.Equal(t, "3", store.TableNumber())
}

func TestAddToCartMergeAndVariants(t *testing.T) {
	store, _ := newTestStore(t)
	burger := testItem("burger", 10.00)

	store.AddToCart(burger, 2, "")
	store.AddToCart(burger, 3, "")
	store.AddToCart(burger, 1, "no salt")

	cart := store.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, 5, cart[0].Quantity)
	assert.Equal(t, 50.00, cart[0].TotalPrice)
	assert.Equal(t, 1, cart[1].Quantity)
}

func TestLoadingAndErrorAreTransient(t *testing.T) {
	store, storage := newTestStore(t)

	store.SetLoading(true)
	store.SetError("boom")
	assert.True(t, store.Loading())
	assert.Equal(t, "boom", store.LastError())

	second := New(storage, logger.NewNop())
	require.NoError(t, second.Hydrate(context.Background()))
	assert.False(t, second.Loading())
	assert.Empty(t, second.LastError())
}

func TestResetPreservesMenuAndHydration(t *testing.T) {
	store, _ := newTestStore(t)

	categories := []domain.MenuCategory{{ID: "cat-1", Name: "Mains", IsActive: true}}
	items := []domain.MenuItem{testItem("burger", 10.00)}
	store.SetMenu(categories, items)
	store.SetSession(&domain.Session{ID: "sess-1"})
	store.SetUser(&domain.SessionUser{ID: "user-1"})
	store.AddToCart(items[0], 1, "")

	store.Reset()

	assert.Nil(t, store.User())
	assert.Nil(t, store.Session())
	assert.Empty(t, store.TableNumber())
	assert.Empty(t, store.Cart())
	assert.Equal(t, HydrationReady, store.Hydration())

	gotCategories, gotItems := store.Menu()
	assert.Len(t, gotCategories, 1)
	assert.Len(t, gotItems, 1)
}

func TestMenuItemLookup(t *testing.T) {
	store, _ := newTestStore(t)
	store.SetMenu(nil, []domain.MenuItem{testItem("burger", 10.00)})

	item, ok := store.MenuItem("burger")
	require.True(t, ok)
	assert.Equal(t, 10.00, item.Price)

	_, ok = store.MenuItem("missing")
	assert.False(t, ok)
}

func TestCartReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	store.AddToCart(testItem("burger", 10.00), 1, "")

	cart := store.Cart()
	cart[0].Quantity = 99

	assert.Equal(t, 1, store.Cart()[0].Quantity)
}
