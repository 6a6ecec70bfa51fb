package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/xtrntr/kaspay/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an order id is not in the ledger
var ErrNotFound = errors.New("order not found")

// Ledger holds payment orders in memory. Its lifetime is the lifetime of
// the hosting process: nothing is persisted and a restart clears it.
type Ledger struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	ttl    time.Duration
	now    func() time.Time // swapped out in tests
}

// NewLedger creates an empty ledger whose orders expire after ttl
func NewLedger(ttl time.Duration) *Ledger {
	return &Ledger{
		orders: make(map[string]*models.Order),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Create adds a new pending order priced at the given USD rate. The asset
// amount is computed once here and never recomputed, regardless of later
// price movements.
func (l *Ledger) Create(amountUSD float64, asset models.Asset, price float64, description string) (*models.Order, error) {
	if amountUSD <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	now := l.now()
	order := &models.Order{
		ID:              uuid.NewString(),
		AmountUSD:       amountUSD,
		Asset:           asset.Symbol,
		AssetAmount:     roundTo(amountUSD/price, asset.Decimals),
		PriceAtCreation: price,
		Description:     description,
		Status:          models.StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(l.ttl),
		PaymentAddress:  asset.Address,
	}

	l.mu.Lock()
	l.orders[order.ID] = order
	l.mu.Unlock()

	out := *order
	return &out, nil
}

// Get retrieves an order by id
func (l *Ledger) Get(id string) (*models.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order, ok := l.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *order
	return &out, nil
}

// List returns all orders, newest first. An empty assetFilter returns
// every order; otherwise only orders for that asset symbol are returned.
func (l *Ledger) List(assetFilter string) []models.Order {
	l.mu.RLock()
	orders := make([]models.Order, 0, len(l.orders))
	for _, order := range l.orders {
		if assetFilter != "" && order.Asset != assetFilter {
			continue
		}
		orders = append(orders, *order)
	}
	l.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

// UpdateStatus overwrites an order's status unconditionally. There is no
// state-machine guard: confirmed -> pending is allowed, matching the
// manual workflow this ledger backs.
func (l *Ledger) UpdateStatus(id string, status models.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	return nil
}

// SweepExpired marks every pending order past its expiry as expired and
// returns how many were transitioned. Calling it again without new
// expiries is a no-op.
func (l *Ledger) SweepExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	swept := 0
	for _, order := range l.orders {
		if order.Status == models.StatusPending && now.After(order.ExpiresAt) {
			order.Status = models.StatusExpired
			swept++
		}
	}
	return swept
}

// ClearExpired deletes every order whose status is expired and returns
// how many were removed
func (l *Ledger) ClearExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cleared := 0
	for id, order := range l.orders {
		if order.Status == models.StatusExpired {
			delete(l.orders, id)
			cleared++
		}
	}
	return cleared
}

// Delete removes an order. Deleting an id that is not in the ledger is a
// silent no-op.
func (l *Ledger) Delete(id string) {
	l.mu.Lock()
	delete(l.orders, id)
	l.mu.Unlock()
}

// Len returns the number of orders currently held
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// roundTo rounds v to the given number of decimal places
func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
