package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xtrntr/kaspay/internal/auth"
	"github.com/xtrntr/kaspay/internal/chain"
	"github.com/xtrntr/kaspay/internal/ledger"
	"github.com/xtrntr/kaspay/internal/models"
	"github.com/xtrntr/kaspay/internal/payuri"
	"github.com/xtrntr/kaspay/internal/quote"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Ledger      *ledger.Ledger
	Quotes      *quote.Source
	AuthService *auth.AuthService
	Checker     chain.Checker
	Assets      []models.Asset
	Log         *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(l *ledger.Ledger, q *quote.Source, authService *auth.AuthService, checker chain.Checker, assets []models.Asset, log *zap.Logger) *Handler {
	return &Handler{
		Ledger:      l,
		Quotes:      q,
		AuthService: authService,
		Checker:     checker,
		Assets:      assets,
		Log:         log,
	}
}

// Routes builds the service router: public login/price/asset endpoints
// plus the JWT-protected order surface
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", h.Login)
	r.Get("/prices", h.GetPrices)
	r.Get("/assets", h.GetAssets)

	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)
		r.Post("/orders/sweep", h.SweepOrders)
		r.Delete("/orders/expired", h.ClearExpiredOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Delete("/orders/{id}", h.DeleteOrder)
		r.Get("/orders/{id}/uri", h.GetOrderURI)
		r.Get("/orders/{id}/qr", h.GetOrderQR)
		r.Post("/orders/{id}/check", h.CheckOrder)
		r.Post("/orders/{id}/confirm", h.ConfirmOrder)
		r.Put("/orders/{id}/status", h.UpdateOrderStatus)
	})

	return r
}

// Login handles merchant login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		http.Error(w, `{"error": "Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// JWTAuthMiddleware verifies JWT tokens
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, `{"error": "Authorization header required"}`, http.StatusUnauthorized)
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		merchant, err := h.AuthService.Verify(tokenString)
		if err != nil {
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), merchantKey, merchant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const merchantKey contextKey = "merchant"

// merchantFrom returns the merchant name the request was authenticated
// as, or an empty string on unauthenticated routes
func merchantFrom(r *http.Request) string {
	merchant, _ := r.Context().Value(merchantKey).(string)
	return merchant
}

// CreateOrder handles payment order creation. The quote source is
// consulted for the asset's current USD price; if the fetch fails the
// cached price is used and creation still succeeds.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountUSD   float64 `json:"amount_usd"`
		Asset       string  `json:"asset"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.AmountUSD <= 0 {
		http.Error(w, `{"error": "Amount must be positive"}`, http.StatusBadRequest)
		return
	}

	asset, ok := models.FindAsset(h.Assets, req.Asset)
	if !ok {
		http.Error(w, `{"error": "Unknown asset"}`, http.StatusBadRequest)
		return
	}

	price, ok := h.Quotes.Price(r.Context(), asset.QuoteID)
	if !ok {
		// only possible when an asset has no fallback price configured
		http.Error(w, `{"error": "Price unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	order, err := h.Ledger.Create(req.AmountUSD, asset, price, req.Description)
	if err != nil {
		http.Error(w, `{"error": "Failed to create order"}`, http.StatusInternalServerError)
		return
	}

	h.Log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("merchant", merchantFrom(r)),
		zap.String("asset", order.Asset),
		zap.Float64("amount_usd", order.AmountUSD),
		zap.Float64("asset_amount", order.AssetAmount))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

// GetOrder retrieves a single order
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookupOrder(w, r)
	if !ok {
		return
	}
	json.NewEncoder(w).Encode(order)
}

// ListOrders retrieves all orders, newest first, optionally filtered by
// asset symbol (?asset=KAS)
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.Ledger.List(r.URL.Query().Get("asset"))
	json.NewEncoder(w).Encode(map[string]interface{}{"orders": orders})
}

// GetOrderURI returns the payment URI for an order as copyable text
func (h *Handler) GetOrderURI(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookupOrder(w, r)
	if !ok {
		return
	}

	uri := h.buildURI(order)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(uri))
}

// GetOrderQR returns a QR image of the payment URI. If QR encoding
// fails it degrades to the raw URI as copyable text instead of erroring.
func (h *Handler) GetOrderQR(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookupOrder(w, r)
	if !ok {
		return
	}

	uri := h.buildURI(order)
	png, err := payuri.QRPNG(uri, 256)
	if err != nil {
		h.Log.Warn("QR encoding unavailable, falling back to text", zap.Error(err), zap.String("order_id", order.ID))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(uri))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// CheckOrder runs the payment status checker and overwrites the order's
// status with whatever it reports
func (h *Handler) CheckOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookupOrder(w, r)
	if !ok {
		return
	}

	status, err := h.Checker.Check(r.Context(), *order)
	if err != nil {
		http.Error(w, `{"error": "Status check failed"}`, http.StatusBadGateway)
		return
	}

	if err := h.Ledger.UpdateStatus(order.ID, status); err != nil {
		http.Error(w, `{"error": "Order not found"}`, http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"id": order.ID, "status": status})
}

// ConfirmOrder manually marks an order as confirmed
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Ledger.UpdateStatus(id, models.StatusConfirmed); err != nil {
		http.Error(w, `{"error": "Order not found"}`, http.StatusNotFound)
		return
	}

	h.Log.Info("order confirmed", zap.String("order_id", id))
	order, err := h.Ledger.Get(id)
	if err != nil {
		http.Error(w, `{"error": "Order not found"}`, http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(order)
}

// UpdateOrderStatus overwrites an order's status with an arbitrary
// value. No transition guard is applied.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		http.Error(w, `{"error": "Unknown status"}`, http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Ledger.UpdateStatus(id, req.Status); err != nil {
		http.Error(w, `{"error": "Order not found"}`, http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "status": req.Status})
}

// SweepOrders transitions timed-out pending orders to expired
func (h *Handler) SweepOrders(w http.ResponseWriter, r *http.Request) {
	swept := h.Ledger.SweepExpired()
	if swept > 0 {
		h.Log.Info("swept expired orders", zap.Int("count", swept))
	}
	json.NewEncoder(w).Encode(map[string]int{"expired": swept})
}

// ClearExpiredOrders deletes every expired order
func (h *Handler) ClearExpiredOrders(w http.ResponseWriter, r *http.Request) {
	cleared := h.Ledger.ClearExpired()
	if cleared > 0 {
		h.Log.Info("cleared expired orders", zap.Int("count", cleared))
	}
	json.NewEncoder(w).Encode(map[string]int{"cleared": cleared})
}

// DeleteOrder removes an order. Deleting an unknown id is tolerated and
// still answers 200.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.Ledger.Delete(chi.URLParam(r, "id"))
	json.NewEncoder(w).Encode(map[string]string{"message": "Order deleted"})
}

// GetPrices returns the current USD price per asset symbol
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(h.Assets))
	for _, a := range h.Assets {
		ids = append(ids, a.QuoteID)
	}
	quotes := h.Quotes.Prices(r.Context(), ids...)

	prices := make(map[string]float64, len(h.Assets))
	for _, a := range h.Assets {
		if p, ok := quotes[a.QuoteID]; ok {
			prices[a.Symbol] = p
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"prices": prices})
}

// GetAssets returns the configured asset table
func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{"assets": h.Assets})
}

// lookupOrder fetches the order from the {id} URL param, writing a 404
// when it is absent
func (h *Handler) lookupOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	order, err := h.Ledger.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, `{"error": "Order not found"}`, http.StatusNotFound)
		} else {
			http.Error(w, `{"error": "Failed to retrieve order"}`, http.StatusInternalServerError)
		}
		return nil, false
	}
	return order, true
}

func (h *Handler) buildURI(order *models.Order) string {
	asset, _ := models.FindAsset(h.Assets, order.Asset)
	return payuri.Build(asset.Scheme, order.PaymentAddress, order.AssetAmount, order.Description)
}
