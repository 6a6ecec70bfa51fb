package ledger

import (
	"testing"
	"time"

	"github.com/xtrntr/kaspay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kaspa() models.Asset {
	return models.Asset{
		Symbol:   "KAS",
		Name:     "Kaspa",
		Decimals: 8,
		Address:  "qztestaddress",
		Scheme:   "kaspa:",
		QuoteID:  "kaspa",
	}
}

func TestLedger_CreateConversion(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	tests := []struct {
		name      string
		amountUSD float64
		price     float64
		expected  float64
	}{
		{"RepeatingDecimal", 10, 0.15, 66.66666667},
		{"ExactDivision", 3, 1.5, 2},
		{"SmallAmount", 0.01, 65000, 0.00000015},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := l.Create(tt.amountUSD, kaspa(), tt.price, "")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, order.AssetAmount)
			assert.Equal(t, tt.price, order.PriceAtCreation)
			assert.Equal(t, models.StatusPending, order.Status)
			assert.Equal(t, "qztestaddress", order.PaymentAddress)
			assert.Empty(t, order.TxID)
		})
	}
}

func TestLedger_CreateRejectsBadInput(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	_, err := l.Create(0, kaspa(), 0.15, "")
	assert.Error(t, err)

	_, err = l.Create(-5, kaspa(), 0.15, "")
	assert.Error(t, err)

	_, err = l.Create(10, kaspa(), 0, "")
	assert.Error(t, err)

	assert.Equal(t, 0, l.Len())
}

func TestLedger_OrderNeverRepriced(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	order, err := l.Create(10, kaspa(), 0.15, "frozen")
	require.NoError(t, err)

	// Mutating the returned copy must not touch the ledger
	order.AssetAmount = 999
	order.PriceAtCreation = 999

	// Later orders at a different price must not touch earlier ones
	_, err = l.Create(10, kaspa(), 0.30, "")
	require.NoError(t, err)

	got, err := l.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 66.66666667, got.AssetAmount)
	assert.Equal(t, 0.15, got.PriceAtCreation)
}

func TestLedger_GetNotFound(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	_, err := l.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_ListNewestFirstAndFiltered(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	l.now = func() time.Time { return clock }

	first, _ := l.Create(1, kaspa(), 0.15, "")
	clock = t0.Add(time.Minute)
	btc := models.Asset{Symbol: "BTC", Decimals: 8, Address: "bc1qtest", Scheme: "bitcoin:", QuoteID: "bitcoin"}
	second, _ := l.Create(2, btc, 65000, "")
	clock = t0.Add(2 * time.Minute)
	third, _ := l.Create(3, kaspa(), 0.15, "")

	all := l.List("")
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	kasOnly := l.List("KAS")
	require.Len(t, kasOnly, 2)
	assert.Equal(t, third.ID, kasOnly[0].ID)
	assert.Equal(t, first.ID, kasOnly[1].ID)

	assert.Empty(t, l.List("LTC"))
}

func TestLedger_UpdateStatusUnguarded(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	order, err := l.Create(10, kaspa(), 0.15, "")
	require.NoError(t, err)

	require.NoError(t, l.UpdateStatus(order.ID, models.StatusConfirmed))

	// No transition guard: confirmed can go back to pending
	require.NoError(t, l.UpdateStatus(order.ID, models.StatusPending))

	got, err := l.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	assert.ErrorIs(t, l.UpdateStatus("no-such-id", models.StatusFailed), ErrNotFound)
}

func TestLedger_SweepExpiredTTLBoundary(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	l.now = func() time.Time { return clock }

	order, err := l.Create(10, kaspa(), 0.15, "")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(30*time.Minute), order.ExpiresAt)

	// 29 minutes in: still pending after a sweep
	clock = t0.Add(29 * time.Minute)
	assert.Equal(t, 0, l.SweepExpired())
	got, _ := l.Get(order.ID)
	assert.Equal(t, models.StatusPending, got.Status)

	// 31 minutes in: the sweep expires it
	clock = t0.Add(31 * time.Minute)
	assert.Equal(t, 1, l.SweepExpired())
	got, _ = l.Get(order.ID)
	assert.Equal(t, models.StatusExpired, got.Status)
}

func TestLedger_SweepExpiredIdempotent(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	l.now = func() time.Time { return clock }

	a, _ := l.Create(10, kaspa(), 0.15, "")
	b, _ := l.Create(20, kaspa(), 0.15, "")
	require.NoError(t, l.UpdateStatus(b.ID, models.StatusConfirmed))

	clock = t0.Add(time.Hour)
	assert.Equal(t, 1, l.SweepExpired())
	firstPass := l.List("")

	assert.Equal(t, 0, l.SweepExpired())
	secondPass := l.List("")
	assert.Equal(t, firstPass, secondPass)

	got, _ := l.Get(a.ID)
	assert.Equal(t, models.StatusExpired, got.Status)
	got, _ = l.Get(b.ID)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestLedger_ClearExpired(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	l.now = func() time.Time { return clock }

	expired, _ := l.Create(10, kaspa(), 0.15, "")
	kept, _ := l.Create(20, kaspa(), 0.15, "")
	require.NoError(t, l.UpdateStatus(kept.ID, models.StatusConfirmed))

	clock = t0.Add(time.Hour)
	l.SweepExpired()

	assert.Equal(t, 1, l.ClearExpired())
	assert.Equal(t, 0, l.ClearExpired())

	_, err := l.Get(expired.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Get(kept.ID)
	assert.NoError(t, err)
}

func TestLedger_DeleteAbsentIsNoop(t *testing.T) {
	l := NewLedger(30 * time.Minute)

	order, err := l.Create(10, kaspa(), 0.15, "")
	require.NoError(t, err)

	l.Delete("no-such-id")
	assert.Equal(t, 1, l.Len())

	l.Delete(order.ID)
	assert.Equal(t, 0, l.Len())

	l.Delete(order.ID) // double delete is also fine
	assert.Equal(t, 0, l.Len())
}
