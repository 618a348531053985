package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/repository/cart"
	"marketplace-api/internal/repository/order"
	"marketplace-api/internal/repository/product"
	"marketplace-api/internal/repository/token"
	"marketplace-api/internal/repository/user"

	"github.com/google/uuid"
)

// Memory is a process-local Store. A unit of work holds the store lock for
// its whole duration and restores a snapshot when it fails.
type Memory struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	seq      int64
	products map[string]memProduct
	carts    map[string]map[string]domain.CartEntry
	orders   map[string]memOrder
	users    map[string]domain.User
	tokens   map[string]domain.Token
}

type memProduct struct {
	seq int64
	p   domain.Product
}

type memOrder struct {
	seq int64
	o   domain.Order
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			products: map[string]memProduct{},
			carts:    map[string]map[string]domain.CartEntry{},
			orders:   map[string]memOrder{},
			users:    map[string]domain.User{},
			tokens:   map[string]domain.Token{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Repos() Repos {
	return m.bind(false)
}

func (m *Memory) Atomic(ctx context.Context, fn func(Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(m.bind(true)); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) Close() {}

func (m *Memory) bind(held bool) Repos {
	r := &memRepo{m: m, held: held}
	return Repos{
		Products: (*memProducts)(r),
		Carts:    (*memCarts)(r),
		Orders:   (*memOrders)(r),
		Users:    (*memUsers)(r),
		Tokens:   (*memTokens)(r),
	}
}

func (s *memState) clone() *memState {
	out := &memState{
		seq:      s.seq,
		products: make(map[string]memProduct, len(s.products)),
		carts:    make(map[string]map[string]domain.CartEntry, len(s.carts)),
		orders:   make(map[string]memOrder, len(s.orders)),
		users:    make(map[string]domain.User, len(s.users)),
		tokens:   make(map[string]domain.Token, len(s.tokens)),
	}
	for k, v := range s.products {
		v.p = copyProduct(v.p)
		out.products[k] = v
	}
	for k, entries := range s.carts {
		c := make(map[string]domain.CartEntry, len(entries))
		for pid, e := range entries {
			c[pid] = e
		}
		out.carts[k] = c
	}
	for k, v := range s.orders {
		v.o = copyOrder(v.o)
		out.orders[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.tokens {
		out.tokens[k] = v
	}
	return out
}

func (s *memState) next() int64 {
	s.seq++
	return s.seq
}

func copyProduct(p domain.Product) domain.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderLineItem{}, o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}

// memRepo locks per call unless it is bound to a unit of work that already
// holds the lock.
type memRepo struct {
	m    *Memory
	held bool
}

func (r *memRepo) lock() func() {
	if r.held {
		return func() {}
	}
	r.m.mu.Lock()
	return r.m.mu.Unlock
}

type memProducts memRepo

var _ product.Repository = (*memProducts)(nil)

func (r *memProducts) lock() func() { return (*memRepo)(r).lock() }

func (r *memProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	defer r.lock()()
	mp, ok := r.m.state.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p := copyProduct(mp.p)
	p.Reprice()
	return &p, nil
}

func (r *memProducts) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	defer r.lock()()
	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if mp, ok := r.m.state.products[id]; ok {
			p := copyProduct(mp.p)
			p.Reprice()
			out[id] = &p
		}
	}
	return out, nil
}

func (r *memProducts) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	defer r.lock()()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []memProduct
	for _, mp := range r.m.state.products {
		p := mp.p
		switch {
		case !p.IsActive:
			continue
		case f.Category != "" && p.Category != f.Category:
			continue
		case f.Popular != nil && p.IsPopular != *f.Popular:
			continue
		case f.New != nil && p.IsNew != *f.New:
			continue
		case f.SellerID != "" && p.SellerID != f.SellerID:
			continue
		case search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search):
			continue
		}
		matched = append(matched, mp)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if f.OrderBy == domain.OrderByRating && a.p.Rating != b.p.Rating {
			return a.p.Rating > b.p.Rating
		}
		return a.seq > b.seq
	})

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]domain.Product, 0, len(matched))
	for _, mp := range matched {
		p := copyProduct(mp.p)
		p.Reprice()
		out = append(out, p)
	}
	return out, total, nil
}

func (r *memProducts) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	defer r.lock()()
	p = copyProduct(p)
	p.ID = uuid.NewString()
	p.CreatedAt = r.m.now()
	p.Reprice()
	r.m.state.products[p.ID] = memProduct{seq: r.m.state.next(), p: p}
	out := copyProduct(p)
	return &out, nil
}

func (r *memProducts) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	defer r.lock()()
	cur, ok := r.m.state.products[p.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p = copyProduct(p)
	p.SellerID = cur.p.SellerID
	p.CreatedAt = cur.p.CreatedAt
	p.Stock = cur.p.Stock
	p.Reprice()
	cur.p = p
	r.m.state.products[p.ID] = cur
	out := copyProduct(p)
	return &out, nil
}

func (r *memProducts) SetStock(ctx context.Context, id string, stock int) (*domain.Product, error) {
	defer r.lock()()
	mp, ok := r.m.state.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	mp.p.Stock = stock
	r.m.state.products[id] = mp
	out := copyProduct(mp.p)
	out.Reprice()
	return &out, nil
}

func (r *memProducts) Delete(ctx context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.m.state.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.state.products, id)
	return nil
}

func (r *memProducts) Reserve(ctx context.Context, id string, qty int) (int64, error) {
	defer r.lock()()
	mp, ok := r.m.state.products[id]
	if !ok {
		return 0, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if !mp.p.IsActive {
		return 0, fmt.Errorf("product %s: %w", mp.p.Name, domain.ErrUnavailable)
	}
	if mp.p.Stock < qty {
		return 0, &domain.StockError{ProductID: id, Name: mp.p.Name, Requested: qty, Available: mp.p.Stock}
	}
	mp.p.Stock -= qty
	r.m.state.products[id] = mp
	return domain.FinalPrice(mp.p.Price, mp.p.Discount), nil
}

func (r *memProducts) Release(ctx context.Context, id string, qty int) error {
	defer r.lock()()
	mp, ok := r.m.state.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	mp.p.Stock += qty
	r.m.state.products[id] = mp
	return nil
}

type memCarts memRepo

var _ cart.Repository = (*memCarts)(nil)

func (r *memCarts) lock() func() { return (*memRepo)(r).lock() }

func (r *memCarts) Entries(ctx context.Context, userID string) ([]domain.CartEntry, error) {
	defer r.lock()()
	entries := make([]domain.CartEntry, 0, len(r.m.state.carts[userID]))
	for _, e := range r.m.state.carts[userID] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.Before(entries[j].AddedAt)
		}
		return entries[i].ProductID < entries[j].ProductID
	})
	return entries, nil
}

func (r *memCarts) Get(ctx context.Context, userID, productID string) (*domain.CartEntry, error) {
	defer r.lock()()
	e, ok := r.m.state.carts[userID][productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r *memCarts) Put(ctx context.Context, userID, productID string, quantity int) error {
	defer r.lock()()
	c, ok := r.m.state.carts[userID]
	if !ok {
		c = map[string]domain.CartEntry{}
		r.m.state.carts[userID] = c
	}
	e, ok := c[productID]
	if !ok {
		e = domain.CartEntry{ProductID: productID, AddedAt: r.m.now()}
	}
	e.Quantity = quantity
	c[productID] = e
	return nil
}

func (r *memCarts) Remove(ctx context.Context, userID, productID string) error {
	defer r.lock()()
	if _, ok := r.m.state.carts[userID][productID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.state.carts[userID], productID)
	return nil
}

func (r *memCarts) Clear(ctx context.Context, userID string) error {
	defer r.lock()()
	delete(r.m.state.carts, userID)
	return nil
}

type memOrders memRepo

var _ order.Repository = (*memOrders)(nil)

func (r *memOrders) lock() func() { return (*memRepo)(r).lock() }

func (r *memOrders) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	defer r.lock()()
	o = copyOrder(o)
	o.ID = uuid.NewString()
	o.CreatedAt = r.m.now()
	r.m.state.orders[o.ID] = memOrder{seq: r.m.state.next(), o: o}
	out := copyOrder(o)
	return &out, nil
}

func (r *memOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	defer r.lock()()
	mo, ok := r.m.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyOrder(mo.o)
	return &out, nil
}

func (r *memOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	defer r.lock()()
	return r.collect(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *memOrders) ListAll(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	defer r.lock()()
	return r.collect(func(o domain.Order) bool { return status == "" || o.Status == status }), nil
}

func (r *memOrders) collect(keep func(domain.Order) bool) []domain.Order {
	var matched []memOrder
	for _, mo := range r.m.state.orders {
		if keep(mo.o) {
			matched = append(matched, mo)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	out := make([]domain.Order, 0, len(matched))
	for _, mo := range matched {
		out = append(out, copyOrder(mo.o))
	}
	return out
}

func (r *memOrders) UpdateState(ctx context.Context, o domain.Order, from domain.OrderStatus) error {
	defer r.lock()()
	mo, ok := r.m.state.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if mo.o.Status != from {
		return fmt.Errorf("order %s is no longer %s: %w", o.ID, from, domain.ErrInvalidTransition)
	}
	next := copyOrder(o)
	mo.o.Status = next.Status
	mo.o.IsPaid = next.IsPaid
	mo.o.PaidAt = next.PaidAt
	mo.o.IsDelivered = next.IsDelivered
	mo.o.DeliveredAt = next.DeliveredAt
	r.m.state.orders[o.ID] = mo
	return nil
}

type memUsers memRepo

var _ user.Repository = (*memUsers)(nil)

func (r *memUsers) lock() func() { return (*memRepo)(r).lock() }

func (r *memUsers) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	defer r.lock()()
	if r.conflicts("", u) {
		return nil, domain.ErrAlreadyExists
	}
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = r.m.now()
	r.m.state.users[u.ID] = u
	return &u, nil
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer r.lock()()
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	defer r.lock()()
	for _, u := range r.m.state.users {
		if strings.EqualFold(u.Login, login) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUsers) Update(ctx context.Context, u domain.User) (*domain.User, error) {
	defer r.lock()()
	cur, ok := r.m.state.users[u.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.conflicts(u.ID, u) {
		return nil, domain.ErrAlreadyExists
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = cur.CreatedAt
	r.m.state.users[u.ID] = u
	return &u, nil
}

func (r *memUsers) conflicts(selfID string, u domain.User) bool {
	for id, other := range r.m.state.users {
		if id == selfID {
			continue
		}
		if strings.EqualFold(other.Login, u.Login) || strings.EqualFold(other.Email, u.Email) {
			return true
		}
	}
	return false
}

type memTokens memRepo

var _ token.Repository = (*memTokens)(nil)

func (r *memTokens) lock() func() { return (*memRepo)(r).lock() }

func (r *memTokens) Create(ctx context.Context, t domain.Token) error {
	defer r.lock()()
	if _, ok := r.m.state.tokens[t.Token]; ok {
		return domain.ErrAlreadyExists
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.m.now()
	}
	r.m.state.tokens[t.Token] = t
	return nil
}

func (r *memTokens) Get(ctx context.Context, tok string) (*domain.Token, error) {
	defer r.lock()()
	t, ok := r.m.state.tokens[tok]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *memTokens) Delete(ctx context.Context, tok string) error {
	defer r.lock()()
	if _, ok := r.m.state.tokens[tok]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.state.tokens, tok)
	return nil
}
