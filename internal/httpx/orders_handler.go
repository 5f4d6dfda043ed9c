package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	kafkax "github.com/ardiansyah/go-shop-api/internal/kafka"
	"github.com/ardiansyah/go-shop-api/internal/orders"
	"github.com/ardiansyah/go-shop-api/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Repo            *orders.Repo
	Redis           *redis.Client
	ProducerCreated *kafkax.Producer // order.created
	ProducerCancel  *kafkax.Producer // order.cancelled
	Service         string
	Log             *zap.Logger
}

type CreateOrderReq struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders/", h.list)
	r.Post("/orders/create/", h.create)
	r.Get("/orders/{id}/", h.get)
	r.Patch("/orders/{id}/cancel/", h.cancel)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	// placing orders is a customer capability
	if !p.IsCustomer() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "customer role required"})
		return
	}

	var req CreateOrderReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "COD"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Repo.CreateFromCart(ctx, p.UserID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheOrder(ctx, order)
	h.publish(h.ProducerCreated, orders.EventOrderCreated, r, order)

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.List(ctx, p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache fast path; the key is scoped to the owner so one user cannot
	// read another's cached order
	key := fmt.Sprintf(redisx.KeyOrderDetail, p.UserID+":"+orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	order, err := h.Repo.Get(ctx, p.UserID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheOrder(ctx, order)
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Repo.Cancel(ctx, p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheOrder(ctx, order)
	h.publish(h.ProducerCancel, orders.EventOrderCancelled, r, order)

	writeJSON(w, http.StatusOK, order)
}

// cacheOrder refreshes the detail cache. Cache writes are best effort: a dead
// Redis never fails the request.
func (h *OrdersHandler) cacheOrder(ctx context.Context, o orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderDetail, o.UserID+":"+o.ID)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderDetail).Err()
}

func (h *OrdersHandler) publish(prod *kafkax.Producer, eventType string, r *http.Request, o orders.Order) {
	if prod == nil {
		return
	}
	items := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}

	var payload any
	if eventType == orders.EventOrderCreated {
		payload = orders.OrderCreatedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			TotalAmount: o.TotalAmount.StringFixed(2),
			Items:       items,
		}
	} else {
		payload = orders.OrderCancelledPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Items:       items,
		}
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(payload),
	}
	prod.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
