package stocksync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	connectordomain "github.com/stocksync/backend/internal/domain/connector"
	ledgerdomain "github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	storedomain "github.com/stocksync/backend/internal/domain/store"
	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

// ---------------------------------------------------------------------------
// movement repository
// ---------------------------------------------------------------------------

type fakeMovementRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*syncdomain.Movement
	saveErr   error
	dedupFail bool // report ErrAlreadyExists on insert, simulating the unique index
}

func newFakeMovementRepo() *fakeMovementRepo {
	return &fakeMovementRepo{byID: make(map[uuid.UUID]*syncdomain.Movement)}
}

func (r *fakeMovementRepo) Save(ctx context.Context, m *syncdomain.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, exists := r.byID[m.ID]; !exists && r.dedupFail {
		return shared.ErrAlreadyExists
	}
	clone := *m
	r.byID[m.ID] = &clone
	return nil
}

func (r *fakeMovementRepo) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMovementRepo) FindByDedupKey(ctx context.Context, storeID uuid.UUID, orderID, sku string, direction syncdomain.MovementDirection) (*syncdomain.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byID {
		if m.StoreID == storeID && m.OrderID == orderID && m.Sku == sku && m.Direction == direction {
			clone := *m
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeMovementRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]syncdomain.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []syncdomain.Movement
	for _, m := range r.byID {
		if m.IsDue(now) && len(due) < limit {
			due = append(due, *m)
		}
	}
	return due, nil
}

func (r *fakeMovementRepo) FindAll(ctx context.Context, filter syncdomain.MovementFilter) ([]syncdomain.Movement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []syncdomain.Movement
	for _, m := range r.byID {
		all = append(all, *m)
	}
	return all, int64(len(all)), nil
}

func (r *fakeMovementRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ---------------------------------------------------------------------------
// lock repository
// ---------------------------------------------------------------------------

type lockKey struct {
	storeID   uuid.UUID
	direction syncdomain.LockDirection
}

type fakeLockRepo struct {
	mu    sync.Mutex
	locks map[lockKey]*syncdomain.SyncLock
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{locks: make(map[lockKey]*syncdomain.SyncLock)}
}

func (r *fakeLockRepo) Insert(ctx context.Context, lock *syncdomain.SyncLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := lockKey{lock.StoreID, lock.Direction}
	if _, held := r.locks[key]; held {
		return shared.ErrAlreadyExists
	}
	r.locks[key] = lock
	return nil
}

func (r *fakeLockRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reaped := 0
	for key, lock := range r.locks {
		if now.After(lock.ExpiresAt) {
			delete(r.locks, key)
			reaped++
		}
	}
	return reaped, nil
}

func (r *fakeLockRepo) Delete(ctx context.Context, storeID uuid.UUID, direction syncdomain.LockDirection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := lockKey{storeID, direction}
	if _, held := r.locks[key]; !held {
		return shared.ErrNotFound
	}
	delete(r.locks, key)
	return nil
}

func (r *fakeLockRepo) DeleteAllForStore(ctx context.Context, storeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.locks {
		if key.storeID == storeID {
			delete(r.locks, key)
		}
	}
	return nil
}

func (r *fakeLockRepo) Find(ctx context.Context, storeID uuid.UUID, direction syncdomain.LockDirection) (*syncdomain.SyncLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, held := r.locks[lockKey{storeID, direction}]
	if !held {
		return nil, shared.ErrNotFound
	}
	return lock, nil
}

// ---------------------------------------------------------------------------
// cache / unmapped / sync log repositories
// ---------------------------------------------------------------------------

type skuKey struct {
	storeID uuid.UUID
	sku     string
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[skuKey]*syncdomain.StoreProductCache
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[skuKey]*syncdomain.StoreProductCache)}
}

func (r *fakeCacheRepo) Save(ctx context.Context, entry *syncdomain.StoreProductCache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries[skuKey{entry.StoreID, entry.Sku}] = &clone
	return nil
}

func (r *fakeCacheRepo) FindByStoreAndSku(ctx context.Context, storeID uuid.UUID, sku string) (*syncdomain.StoreProductCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[skuKey{storeID, sku}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

func (r *fakeCacheRepo) FindByStore(ctx context.Context, storeID uuid.UUID) ([]syncdomain.StoreProductCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.StoreProductCache
	for key, entry := range r.entries {
		if key.storeID == storeID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (r *fakeCacheRepo) quantity(storeID uuid.UUID, sku string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[skuKey{storeID, sku}]
	if !ok {
		return 0, false
	}
	return entry.StockQuantity, true
}

type fakeUnmappedRepo struct {
	mu      sync.Mutex
	entries map[skuKey]*syncdomain.UnmappedSku
}

func newFakeUnmappedRepo() *fakeUnmappedRepo {
	return &fakeUnmappedRepo{entries: make(map[skuKey]*syncdomain.UnmappedSku)}
}

func (r *fakeUnmappedRepo) Save(ctx context.Context, entry *syncdomain.UnmappedSku) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries[skuKey{entry.StoreID, entry.Sku}] = &clone
	return nil
}

func (r *fakeUnmappedRepo) FindByStoreAndSku(ctx context.Context, storeID uuid.UUID, sku string) (*syncdomain.UnmappedSku, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[skuKey{storeID, sku}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

func (r *fakeUnmappedRepo) FindUnresolved(ctx context.Context, storeID uuid.UUID) ([]syncdomain.UnmappedSku, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.UnmappedSku
	for key, entry := range r.entries {
		if key.storeID == storeID && !entry.Resolved {
			out = append(out, *entry)
		}
	}
	return out, nil
}

type fakeSyncLogRepo struct {
	mu   sync.Mutex
	logs []*syncdomain.SyncLog
}

func newFakeSyncLogRepo() *fakeSyncLogRepo { return &fakeSyncLogRepo{} }

func (r *fakeSyncLogRepo) Save(ctx context.Context, log *syncdomain.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *log
	r.logs = append(r.logs, &clone)
	return nil
}

func (r *fakeSyncLogRepo) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSyncLogRepo) FindByStore(ctx context.Context, storeID uuid.UUID, filter syncdomain.SyncLogFilter) ([]syncdomain.SyncLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.SyncLog
	for _, l := range r.logs {
		if l.StoreID == storeID {
			out = append(out, *l)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSyncLogRepo) last() *syncdomain.SyncLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.logs) == 0 {
		return nil
	}
	return r.logs[len(r.logs)-1]
}

// ---------------------------------------------------------------------------
// store / integration / tenant repositories
// ---------------------------------------------------------------------------

type fakeStoreRepo struct {
	mu     sync.Mutex
	stores map[uuid.UUID]*storedomain.Store
}

func newFakeStoreRepo(stores ...*storedomain.Store) *fakeStoreRepo {
	r := &fakeStoreRepo{stores: make(map[uuid.UUID]*storedomain.Store)}
	for _, st := range stores {
		r.stores[st.ID] = st
	}
	return r
}

func (r *fakeStoreRepo) Save(ctx context.Context, st *storedomain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[st.ID] = st
	return nil
}

func (r *fakeStoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*storedomain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return st, nil
}

func (r *fakeStoreRepo) FindActive(ctx context.Context) ([]storedomain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storedomain.Store
	for _, st := range r.stores {
		if st.Active {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (r *fakeStoreRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]storedomain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storedomain.Store
	for _, st := range r.stores {
		if st.TenantID == tenantID {
			out = append(out, *st)
		}
	}
	return out, nil
}

type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[uuid.UUID]*storedomain.Integration
}

func newFakeIntegrationRepo(integrations ...*storedomain.Integration) *fakeIntegrationRepo {
	r := &fakeIntegrationRepo{integrations: make(map[uuid.UUID]*storedomain.Integration)}
	for _, i := range integrations {
		r.integrations[i.StoreID] = i
	}
	return r
}

func (r *fakeIntegrationRepo) Save(ctx context.Context, i *storedomain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[i.StoreID] = i
	return nil
}

func (r *fakeIntegrationRepo) FindByStore(ctx context.Context, storeID uuid.UUID) (*storedomain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.integrations[storeID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return i, nil
}

func (r *fakeIntegrationRepo) FindEnabled(ctx context.Context) ([]storedomain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storedomain.Integration
	for _, i := range r.integrations {
		if i.Enabled {
			out = append(out, *i)
		}
	}
	return out, nil
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*storedomain.Tenant
}

func newFakeTenantRepo(tenants ...*storedomain.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{tenants: make(map[uuid.UUID]*storedomain.Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeTenantRepo) Save(ctx context.Context, t *storedomain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
	return nil
}

func (r *fakeTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*storedomain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// ledger fake
// ---------------------------------------------------------------------------

type fakeLedger struct {
	mu         sync.Mutex
	productIDs map[string]string // sku -> ledger product ID
	stock      map[string]int64  // sku -> quantity
	posted     []ledgerdomain.MovementRequest
	lookupErr  error
	stockErr   error
	postErr    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		productIDs: make(map[string]string),
		stock:      make(map[string]int64),
	}
}

func (l *fakeLedger) addProduct(sku, productID string, quantity int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.productIDs[sku] = productID
	l.stock[sku] = quantity
}

func (l *fakeLedger) FindProductIDBySku(ctx context.Context, sku string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return "", l.lookupErr
	}
	id, ok := l.productIDs[sku]
	if !ok {
		return "", ledgerdomain.ErrProductNotFound
	}
	return id, nil
}

func (l *fakeLedger) GetStock(ctx context.Context, productID, sku, warehouseID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stockErr != nil {
		return 0, l.stockErr
	}
	return l.stock[sku], nil
}

func (l *fakeLedger) PostMovement(ctx context.Context, req ledgerdomain.MovementRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.postErr != nil {
		return "", l.postErr
	}
	l.posted = append(l.posted, req)
	return uuid.NewString(), nil
}

func (l *fakeLedger) postedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted)
}

// ---------------------------------------------------------------------------
// connector fake
// ---------------------------------------------------------------------------

type fakeConnector struct {
	mu       sync.Mutex
	platform connectordomain.PlatformCode
	products map[string]connectordomain.Product // keyed by sku
	writes   map[string]int64                   // ref.ProductID -> last written qty
	scanErr  error
	writeErr error
}

func newFakeConnector(platform connectordomain.PlatformCode) *fakeConnector {
	return &fakeConnector{
		platform: platform,
		products: make(map[string]connectordomain.Product),
		writes:   make(map[string]int64),
	}
}

func (c *fakeConnector) addProduct(sku string, quantity int64, managed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[sku] = connectordomain.Product{
		Ref:           connectordomain.ProductRef{ProductID: "p-" + sku},
		Sku:           sku,
		StockQuantity: quantity,
		Managed:       managed,
	}
}

func (c *fakeConnector) Platform() connectordomain.PlatformCode { return c.platform }

func (c *fakeConnector) TestConnection(ctx context.Context) error { return nil }

func (c *fakeConnector) GetProducts(ctx context.Context, page int, cursor string, pageSize int) (*connectordomain.ProductPage, error) {
	products, err := c.GetProductsWithSku(ctx)
	if err != nil {
		return nil, err
	}
	return &connectordomain.ProductPage{Products: products}, nil
}

func (c *fakeConnector) GetProduct(ctx context.Context, productID string) (*connectordomain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.Ref.ProductID == productID {
			return &p, nil
		}
	}
	return nil, connectordomain.ErrProductNotFound
}

func (c *fakeConnector) GetProductBySku(ctx context.Context, sku string) (*connectordomain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[sku]
	if !ok {
		return nil, connectordomain.ErrProductNotFound
	}
	return &p, nil
}

func (c *fakeConnector) UpdateStock(ctx context.Context, ref connectordomain.ProductRef, quantity int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes[ref.ProductID] = quantity
	for sku, p := range c.products {
		if p.Ref.ProductID == ref.ProductID {
			p.StockQuantity = quantity
			c.products[sku] = p
		}
	}
	return nil
}

func (c *fakeConnector) GetProductsWithSku(ctx context.Context) ([]connectordomain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanErr != nil {
		return nil, c.scanErr
	}
	var out []connectordomain.Product
	for _, p := range c.products {
		if p.Sku != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeConnector) RateLimit() connectordomain.RateLimitSnapshot {
	return connectordomain.RateLimitSnapshot{}
}

func (c *fakeConnector) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConnector) lastWrite(productID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	qty, ok := c.writes[productID]
	return qty, ok
}

type fakeRegistry struct {
	conn *fakeConnector
	err  error
}

func (r *fakeRegistry) ForStore(platform connectordomain.PlatformCode, baseURL, apiKey, apiSecret string) (connectordomain.Connector, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}
