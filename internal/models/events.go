package models

import "time"

// Fact kinds carried on the tracking topic
const (
	FactKindSessionStart  = "SESSION_START"
	FactKindProductView   = "PRODUCT_VIEW"
	FactKindCartEvent     = "CART_EVENT"
	FactKindWishlistEvent = "WISHLIST_EVENT"
	FactKindSessionEnd    = "SESSION_END"
	FactKindConversion    = "CONVERSION"
)

// BaseFact contains common envelope fields for all fact messages.
type BaseFact struct {
	FactID    string    `json:"fact_id"`
	FactKind  string    `json:"fact_kind"`
	Timestamp time.Time `json:"timestamp"`
}

// CartEventFact is dispatched fire-and-forget by the cart engine.
type CartEventFact struct {
	BaseFact
	Event CartEvent `json:"event"`
}

// WishlistEventFact is dispatched fire-and-forget by the wishlist engine.
type WishlistEventFact struct {
	BaseFact
	Event WishlistEvent `json:"event"`
}

// ConversionFact attributes a conversion to a session rollup.
type ConversionFact struct {
	BaseFact
	SessionID string          `json:"session_id"`
	Event     ConversionEvent `json:"conversion"`
}
