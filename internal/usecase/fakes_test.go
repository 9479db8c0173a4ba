package usecase

import (
	"context"
	"errors"
	"sync"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
)

// fakeRepo is an in-memory OrderRepo that records every mutation. Reads
// honor the store's contract of newest first: ids keep insertion order
// and listings walk them backwards.
type fakeRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	ids    []string

	createCalls        int
	updateStatusCalls  int
	updatePaymentCalls int

	createErr error
}

func newFakeRepo(seed ...*domain.Order) *fakeRepo {
	r := &fakeRepo{orders: make(map[string]*domain.Order)}
	for _, o := range seed {
		cp := *o
		r.orders[o.ID] = &cp
		r.ids = append(r.ids, o.ID)
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	cp := *o
	r.orders[o.ID] = &cp
	r.ids = append(r.ids, o.ID)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound(id)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) GetByIDAndUser(_ context.Context, id, userID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.UserID != userID {
		return nil, ErrOrderNotFound(id)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for i := len(r.ids) - 1; i >= 0; i-- {
		if o := r.orders[r.ids[i]]; o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAll(_ context.Context, offset, limit int) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.Order, 0, len(r.orders))
	for i := len(r.ids) - 1; i >= 0; i-- {
		cp := *r.orders[r.ids[i]]
		all = append(all, &cp)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateStatusCalls++
	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound(id)
	}
	o.Status = status
	return nil
}

func (r *fakeRepo) UpdatePayment(_ context.Context, in *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updatePaymentCalls++
	o, ok := r.orders[in.ID]
	if !ok {
		return ErrOrderNotFound(in.ID)
	}
	o.Status = in.Status
	o.ExternalPaymentID = in.ExternalPaymentID
	o.PaymentIntentID = in.PaymentIntentID
	o.PaymentClientSecret = in.PaymentClientSecret
	return nil
}

// fakeCatalog serves snapshots from a map and lets a test fail specific
// decrements.
type fakeCatalog struct {
	snapshots map[string]*domain.ProductSnapshot
	fetchErr  map[string]error

	decremented  []string
	decrementErr map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		snapshots:    make(map[string]*domain.ProductSnapshot),
		fetchErr:     make(map[string]error),
		decrementErr: make(map[string]error),
	}
}

func (c *fakeCatalog) add(id, name string, priceCents int64, stock int) {
	c.snapshots[id] = &domain.ProductSnapshot{ID: id, Name: name, UnitPriceCents: priceCents, AvailableStock: stock}
}

func (c *fakeCatalog) FetchSnapshot(_ context.Context, productID string) (*domain.ProductSnapshot, error) {
	if err, ok := c.fetchErr[productID]; ok {
		return nil, err
	}
	snap, ok := c.snapshots[productID]
	if !ok {
		return nil, ErrProductNotFound(productID)
	}
	cp := *snap
	return &cp, nil
}

func (c *fakeCatalog) DecrementStock(_ context.Context, productID string, _ int) error {
	c.decremented = append(c.decremented, productID)
	if err, ok := c.decrementErr[productID]; ok {
		return err
	}
	return nil
}

// fakeIdem mirrors SetNX semantics: a second TryLock on a held key fails
// until the key is unlocked.
type fakeIdem struct {
	locked map[string]bool
	values map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locked: make(map[string]bool), values: make(map[string]string)}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	k := scope + ":" + key
	if f.locked[k] {
		return false, nil
	}
	f.locked[k] = true
	return true, nil
}

func (f *fakeIdem) Unlock(_ context.Context, scope, key string) error {
	delete(f.locked, scope+":"+key)
	return nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.values[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	v, ok := f.values[scope+":"+key]
	return v, ok, nil
}

type fakeCache struct {
	entries  map[string]StatusEntry
	setCalls int
}

func newFakeCache() *fakeCache { return &fakeCache{entries: make(map[string]StatusEntry)} }

func (f *fakeCache) SetStatus(_ context.Context, orderID, userID string, status domain.Status) error {
	f.setCalls++
	f.entries[orderID] = StatusEntry{UserID: userID, Status: status}
	return nil
}

func (f *fakeCache) GetStatus(_ context.Context, orderID string) (StatusEntry, bool, error) {
	e, ok := f.entries[orderID]
	return e, ok, nil
}

type fakeEvents struct {
	created       []OrderCreatedMsg
	statusChanged []StatusChangedMsg
}

func (f *fakeEvents) PublishOrderCreated(_ context.Context, msg OrderCreatedMsg) error {
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeEvents) PublishStatusChanged(_ context.Context, msg StatusChangedMsg) error {
	f.statusChanged = append(f.statusChanged, msg)
	return nil
}

type fakeRecon struct {
	msgs []StockReconcileMsg
}

func (f *fakeRecon) PublishStockReconcile(_ context.Context, msg StockReconcileMsg) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

// fakeGateway scripts the payment processor. Intents are keyed by id;
// createResult drives CreateAndConfirmIntent.
type fakeGateway struct {
	intents      map[string]*PaymentIntent
	retrieveErr  error
	createResult *PaymentIntent
	createErr    error
	createCalls  int
	lastCreate   CreateIntentInput

	checkoutURL  string
	checkoutErr  error
	lastCheckout CheckoutInput
}

func newFakeGateway() *fakeGateway { return &fakeGateway{intents: make(map[string]*PaymentIntent)} }

func (g *fakeGateway) CreateAndConfirmIntent(_ context.Context, in CreateIntentInput) (*PaymentIntent, error) {
	g.createCalls++
	g.lastCreate = in
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.createResult == nil {
		return nil, errors.New("fakeGateway: no scripted create result")
	}
	cp := *g.createResult
	return &cp, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, id string) (*PaymentIntent, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	intent, ok := g.intents[id]
	if !ok {
		return nil, errors.New("fakeGateway: no such intent " + id)
	}
	cp := *intent
	return &cp, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, in CheckoutInput) (string, error) {
	g.lastCheckout = in
	if g.checkoutErr != nil {
		return "", g.checkoutErr
	}
	return g.checkoutURL, nil
}
