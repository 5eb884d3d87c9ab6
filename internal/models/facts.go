package models

import "time"

// Fact documents persisted to the tracking store. All except the session
// rollup are append-only: written once, never updated.

// Location is denormalized geolocation context attached to every fact.
type Location struct {
	Country     string  `bson:"country" json:"country"`
	CountryCode string  `bson:"country_code" json:"country_code"`
	Region      string  `bson:"region" json:"region"`
	City        string  `bson:"city" json:"city"`
	Latitude    float64 `bson:"latitude" json:"latitude"`
	Longitude   float64 `bson:"longitude" json:"longitude"`
	Timezone    string  `bson:"timezone" json:"timezone"`
}

// UnknownLocation is the fallback for private IPs and failed lookups.
func UnknownLocation() Location {
	return Location{
		Country:     "Unknown",
		CountryCode: "XX",
		Region:      "Unknown",
		City:        "Unknown",
		Timezone:    "UTC",
	}
}

type DeviceInfo struct {
	Type             string `bson:"type" json:"type"`
	Browser          string `bson:"browser" json:"browser"`
	OS               string `bson:"os" json:"os"`
	ScreenResolution string `bson:"screen_resolution,omitempty" json:"screen_resolution,omitempty"`
}

type UTMParams struct {
	Source   string `bson:"source,omitempty" json:"source,omitempty"`
	Medium   string `bson:"medium,omitempty" json:"medium,omitempty"`
	Campaign string `bson:"campaign,omitempty" json:"campaign,omitempty"`
	Term     string `bson:"term,omitempty" json:"term,omitempty"`
	Content  string `bson:"content,omitempty" json:"content,omitempty"`
}

// FactContext is the denormalized request context shared by every fact.
type FactContext struct {
	StoreID   int64      `bson:"store_id" json:"store_id"`
	UserID    *int64     `bson:"user_id" json:"user_id,omitempty"`
	SessionID string     `bson:"session_id,omitempty" json:"session_id,omitempty"`
	IPAddress string     `bson:"ip_address" json:"ip_address"`
	UserAgent string     `bson:"user_agent" json:"user_agent"`
	Location  Location   `bson:"location" json:"location"`
	Device    DeviceInfo `bson:"device_info" json:"device_info"`
	Referrer  string     `bson:"referrer,omitempty" json:"referrer,omitempty"`
	UTM       UTMParams  `bson:"utm_params" json:"utm_params"`
}

type PageVisit struct {
	URL       string    `bson:"url" json:"url"`
	Title     string    `bson:"title" json:"title"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	TimeSpent int       `bson:"time_spent" json:"time_spent"`
}

// Conversion event types
const (
	ConversionCartAdd     = "cart_add"
	ConversionWishlistAdd = "wishlist_add"
	ConversionPurchase    = "purchase"
	ConversionSignup      = "signup"
)

type ConversionEvent struct {
	EventType string    `bson:"event_type" json:"event_type"`
	ProductID int64     `bson:"product_id,omitempty" json:"product_id,omitempty"`
	Value     int64     `bson:"value" json:"value"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SessionTracking is the one mutable fact: a per-session rollup whose
// summary fields are updated in place as the session progresses.
type SessionTracking struct {
	SessionID        string            `bson:"session_id" json:"session_id"`
	FactContext      `bson:",inline"`
	PagesVisited     []PageVisit       `bson:"pages_visited" json:"pages_visited"`
	ConversionEvents []ConversionEvent `bson:"conversion_events" json:"conversion_events"`
	SessionDuration  int               `bson:"session_duration" json:"session_duration"`
	IsBounce         bool              `bson:"is_bounce" json:"is_bounce"`
	SessionStart     time.Time         `bson:"session_start" json:"session_start"`
	SessionEnd       *time.Time        `bson:"session_end,omitempty" json:"session_end,omitempty"`
	IsActive         bool              `bson:"is_active" json:"is_active"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
}

// ProductView records one product page view.
type ProductView struct {
	FactContext  `bson:",inline"`
	ProductID    int64     `bson:"product_id" json:"product_id"`
	ViewDuration int       `bson:"view_duration" json:"view_duration"`
	ScrollDepth  int       `bson:"scroll_depth" json:"scroll_depth"`
	PageTitle    string    `bson:"page_title,omitempty" json:"page_title,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Cart event actions
const (
	CartActionAdd    = "add"
	CartActionUpdate = "update"
	CartActionRemove = "remove"
	CartActionClear  = "clear"
)

// CartEvent records one cart mutation with its value context.
type CartEvent struct {
	FactContext     `bson:",inline"`
	ProductID       int64     `bson:"product_id" json:"product_id"`
	VariantID       *int64    `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
	Action          string    `bson:"action" json:"action"`
	Quantity        int       `bson:"quantity" json:"quantity"`
	Price           int64     `bson:"price" json:"price"`
	TotalValue      int64     `bson:"total_value" json:"total_value"`
	CartTotalBefore int64     `bson:"cart_total_before" json:"cart_total_before"`
	CartTotalAfter  int64     `bson:"cart_total_after" json:"cart_total_after"`
	CartItemsCount  int       `bson:"cart_items_count" json:"cart_items_count"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// WishlistEvent records one wishlist mutation, attributed to whichever
// identity owns the wishlist: a user or a guest session.
type WishlistEvent struct {
	FactContext `bson:",inline"`
	ProductID   int64     `bson:"product_id" json:"product_id"`
	Action      string    `bson:"action" json:"action"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
