package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of items added to carts",
	})

	CartOperationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_failed_total",
		Help: "Total number of failed cart operations",
	}, []string{"reason"})

	WishlistItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishlist_items_added_total",
		Help: "Total number of items added to wishlists",
	})

	CouponApplicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_applications_total",
		Help: "Total number of coupon applications",
	}, []string{"result"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	MigrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "container_migrations_total",
		Help: "Total number of guest-to-user container migrations",
	}, []string{"container"})

	FactsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_facts_recorded_total",
		Help: "Total number of tracking facts recorded",
	}, []string{"kind"})

	FactsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_facts_dropped_total",
		Help: "Total number of tracking facts dropped on dispatch or write failure",
	}, []string{"kind"})

	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_started_total",
		Help: "Total number of browsing sessions started",
	})

	SessionsEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_ended_total",
		Help: "Total number of browsing sessions ended",
	})

	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_swept_total",
		Help: "Total number of idle sessions marked inactive by the sweep",
	})

	GeoLookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geo_lookup_latency_seconds",
		Help:    "Latency of geolocation lookups",
		Buckets: prometheus.DefBuckets,
	})

	GeoCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geo_cache_hits_total",
		Help: "Total number of geolocation cache hits",
	})

	GeoCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geo_cache_misses_total",
		Help: "Total number of geolocation cache misses",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
