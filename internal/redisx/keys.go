package redisx

import "time"

const (
	// Cache order status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Leader lock for the auto-cancel sweep so only one worker runs it.
	KeySweepLock = "lock:order_sweep"

	// Availability cache: stock_avail:{store_id}:{variant_id}
	KeyStockAvail = "stock_avail:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLSweepLock   = 30 * time.Second
	TTLStockAvail  = 30 * time.Second
)
