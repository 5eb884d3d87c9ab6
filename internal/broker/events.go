package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// FactPublisher puts tracking facts on the wire. Callers treat publish
// failures as droppable: the contract is best-effort, not exactly-once.
type FactPublisher struct {
	producer *Producer
}

// NewFactPublisher creates a new fact publisher
func NewFactPublisher(producer *Producer) *FactPublisher {
	return &FactPublisher{producer: producer}
}

func newBaseFact(kind string) models.BaseFact {
	return models.BaseFact{
		FactID:    uuid.New().String(),
		FactKind:  kind,
		Timestamp: time.Now(),
	}
}

// PublishCartEvent publishes a cart mutation fact, keyed by session so a
// session's facts stay ordered within a partition.
func (fp *FactPublisher) PublishCartEvent(ctx context.Context, event models.CartEvent) error {
	fact := models.CartEventFact{
		BaseFact: newBaseFact(models.FactKindCartEvent),
		Event:    event,
	}
	return fp.producer.PublishMessage(ctx, factKey(event.FactContext), fact)
}

// PublishWishlistEvent publishes a wishlist mutation fact.
func (fp *FactPublisher) PublishWishlistEvent(ctx context.Context, event models.WishlistEvent) error {
	fact := models.WishlistEventFact{
		BaseFact: newBaseFact(models.FactKindWishlistEvent),
		Event:    event,
	}
	return fp.producer.PublishMessage(ctx, factKey(event.FactContext), fact)
}

// PublishConversion publishes a conversion attribution for a session.
func (fp *FactPublisher) PublishConversion(ctx context.Context, sessionID string, event models.ConversionEvent) error {
	fact := models.ConversionFact{
		BaseFact:  newBaseFact(models.FactKindConversion),
		SessionID: sessionID,
		Event:     event,
	}
	return fp.producer.PublishMessage(ctx, fmt.Sprintf("session-%s", sessionID), fact)
}

func factKey(fc models.FactContext) string {
	if fc.SessionID != "" {
		return fmt.Sprintf("session-%s", fc.SessionID)
	}
	if fc.UserID != nil {
		return fmt.Sprintf("user-%d", *fc.UserID)
	}
	return fmt.Sprintf("store-%d", fc.StoreID)
}

// FactHandler routes consumed fact messages to registered callbacks.
type FactHandler struct {
	onCartEvent     func(context.Context, *models.CartEventFact) error
	onWishlistEvent func(context.Context, *models.WishlistEventFact) error
	onConversion    func(context.Context, *models.ConversionFact) error
}

// NewFactHandler creates a new fact handler
func NewFactHandler() *FactHandler {
	return &FactHandler{}
}

// OnCartEvent registers a handler for cart event facts
func (fh *FactHandler) OnCartEvent(handler func(context.Context, *models.CartEventFact) error) {
	fh.onCartEvent = handler
}

// OnWishlistEvent registers a handler for wishlist event facts
func (fh *FactHandler) OnWishlistEvent(handler func(context.Context, *models.WishlistEventFact) error) {
	fh.onWishlistEvent = handler
}

// OnConversion registers a handler for conversion facts
func (fh *FactHandler) OnConversion(handler func(context.Context, *models.ConversionFact) error) {
	fh.onConversion = handler
}

// HandleMessage routes messages to the appropriate handler.
func (fh *FactHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseFact
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base fact: %w", err)
	}

	switch base.FactKind {
	case models.FactKindCartEvent:
		if fh.onCartEvent != nil {
			var fact models.CartEventFact
			if err := json.Unmarshal(msg.Value, &fact); err != nil {
				return fmt.Errorf("failed to unmarshal cart event fact: %w", err)
			}
			return fh.onCartEvent(ctx, &fact)
		}

	case models.FactKindWishlistEvent:
		if fh.onWishlistEvent != nil {
			var fact models.WishlistEventFact
			if err := json.Unmarshal(msg.Value, &fact); err != nil {
				return fmt.Errorf("failed to unmarshal wishlist event fact: %w", err)
			}
			return fh.onWishlistEvent(ctx, &fact)
		}

	case models.FactKindConversion:
		if fh.onConversion != nil {
			var fact models.ConversionFact
			if err := json.Unmarshal(msg.Value, &fact); err != nil {
				return fmt.Errorf("failed to unmarshal conversion fact: %w", err)
			}
			return fh.onConversion(ctx, &fact)
		}
	}

	return nil
}
