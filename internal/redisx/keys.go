package redisx

import "time"

const (
	// Cached order payload for GET /orders/{id}: order:detail:{order_id} -> JSON
	KeyOrderDetail = "order:detail:%s"

	// Cached order status: order:status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order:status:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderDetail = 5 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
