package models

import "time"

// Status is the lifecycle state of a payment order
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is one of the known order statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected from s
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusExpired || s == StatusFailed
}

// Asset describes one supported cryptocurrency
type Asset struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Icon          string  `json:"icon"`
	Decimals      int     `json:"decimals"` // precision the asset amount is rounded to
	Address       string  `json:"address"`  // merchant receiving address, without the scheme prefix
	Scheme        string  `json:"scheme"`   // payment URI prefix, e.g. "kaspa:"
	QuoteID       string  `json:"quote_id"` // identifier on the price API
	FallbackPrice float64 `json:"-"`        // used while no live price has ever been fetched
}

// Order represents one payment request
type Order struct {
	ID              string    `json:"id"`
	AmountUSD       float64   `json:"amount_usd"`
	Asset           string    `json:"asset"`
	AssetAmount     float64   `json:"asset_amount"`      // fixed at creation, never re-priced
	PriceAtCreation float64   `json:"price_at_creation"` // USD price snapshot used for the conversion
	Description     string    `json:"description"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	PaymentAddress  string    `json:"payment_address"`
	TxID            string    `json:"txid"` // never populated; reserved for a real chain integration
}

// DefaultAssets returns the built-in asset table. Merchant addresses are
// placeholders and expected to be overridden in configuration.
func DefaultAssets() []Asset {
	return []Asset{
		{
			Symbol:        "KAS",
			Name:          "Kaspa",
			Icon:          "💎",
			Decimals:      8,
			Address:       "qz8z7g3q4x5w6v7u8t9s0r1q2p3o4n5m6l7k8j9h0g1f2e3d4c5b6a7",
			Scheme:        "kaspa:",
			QuoteID:       "kaspa",
			FallbackPrice: 0.15,
		},
		{
			Symbol:        "BTC",
			Name:          "Bitcoin",
			Icon:          "₿",
			Decimals:      8,
			Address:       "bc1qw4v5u6t7s8r9q0p1o2n3m4l5k6j7h8g9f0e1d2",
			Scheme:        "bitcoin:",
			QuoteID:       "bitcoin",
			FallbackPrice: 65000,
		},
		{
			Symbol:        "LTC",
			Name:          "Litecoin",
			Icon:          "Ł",
			Decimals:      8,
			Address:       "ltc1qa1b2c3d4e5f6g7h8j9k0l1m2n3p4q5r6s7t8u9",
			Scheme:        "litecoin:",
			QuoteID:       "litecoin",
			FallbackPrice: 70,
		},
		{
			Symbol:        "DOGE",
			Name:          "Dogecoin",
			Icon:          "Ð",
			Decimals:      8,
			Address:       "D8a1b2c3d4e5f6g7h8J9k0L1m2n3p4Q5r6",
			Scheme:        "dogecoin:",
			QuoteID:       "dogecoin",
			FallbackPrice: 0.12,
		},
	}
}

// FindAsset looks up an asset by symbol
func FindAsset(assets []Asset, symbol string) (Asset, bool) {
	for _, a := range assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return Asset{}, false
}
