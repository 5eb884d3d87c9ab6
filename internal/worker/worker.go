package worker

import (
	"context"
	"log"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
)

// TrackingWorker drains the fact topic into the tracking store. Facts
// arrive fire-and-forget from the cart and wishlist engines; geolocation
// is resolved here, off the request path.
type TrackingWorker struct {
	consumer *broker.Consumer
	handler  *broker.FactHandler
	tracking *service.TrackingService
}

// NewTrackingWorker creates a new tracking worker
func NewTrackingWorker(consumer *broker.Consumer, tracking *service.TrackingService) *TrackingWorker {
	handler := broker.NewFactHandler()

	handler.OnCartEvent(func(ctx context.Context, fact *models.CartEventFact) error {
		return tracking.RecordCartEvent(ctx, &fact.Event)
	})
	handler.OnWishlistEvent(func(ctx context.Context, fact *models.WishlistEventFact) error {
		return tracking.RecordWishlistEvent(ctx, &fact.Event)
	})
	handler.OnConversion(func(ctx context.Context, fact *models.ConversionFact) error {
		return tracking.RecordConversion(ctx, fact.SessionID, fact.Event)
	})

	return &TrackingWorker{
		consumer: consumer,
		handler:  handler,
		tracking: tracking,
	}
}

// Start starts the worker
func (w *TrackingWorker) Start(ctx context.Context) error {
	log.Println("Starting tracking worker...")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *TrackingWorker) Stop() error {
	log.Println("Stopping tracking worker...")
	return w.consumer.Close()
}

// SessionSweeper periodically closes idle tracking sessions for a set of
// stores. It complements the internal sweep endpoint for deployments
// without an external scheduler.
type SessionSweeper struct {
	tracking *service.TrackingService
	storeIDs []int64
	interval time.Duration
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(tracking *service.TrackingService, storeIDs []int64, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		tracking: tracking,
		storeIDs: storeIDs,
		interval: interval,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *SessionSweeper) Start(ctx context.Context) {
	if len(s.storeIDs) == 0 {
		return
	}
	log.Println("Starting session sweeper...")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping session sweeper...")
			return
		case <-ticker.C:
			for _, storeID := range s.storeIDs {
				if _, err := s.tracking.SweepIdleSessions(ctx, storeID); err != nil {
					log.Printf("Session sweep failed for store %d: %v", storeID, err)
				}
			}
		}
	}
}
