package service

import (
	"context"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
)

// Meta is the request context attached to tracking facts: who called
// from where, on what device, arriving via which campaign.
type Meta struct {
	IPAddress string
	UserAgent string
	Referrer  string
	SessionID string
	Device    models.DeviceInfo
	UTM       models.UTMParams
}

// FactDispatcher hands tracking facts to the background pipeline.
// Dispatch failures are the caller's to swallow: facts are best-effort
// and must never fail the operation they describe.
type FactDispatcher interface {
	PublishCartEvent(ctx context.Context, event models.CartEvent) error
	PublishWishlistEvent(ctx context.Context, event models.WishlistEvent) error
	PublishConversion(ctx context.Context, sessionID string, event models.ConversionEvent) error
}

// factContext denormalizes identity and request meta onto a fact.
// Location stays empty here; the tracking pipeline resolves it from the
// IP off the request path.
func factContext(id identity.Identity, storeID int64, meta Meta) models.FactContext {
	fc := models.FactContext{
		StoreID:   storeID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
		Device:    meta.Device,
		UTM:       meta.UTM,
		SessionID: meta.SessionID,
	}
	if fc.Device.Type == "" {
		fc.Device.Type = "desktop"
	}
	if id.IsUser() {
		userID := id.UserID
		fc.UserID = &userID
	} else {
		fc.SessionID = id.SessionID
	}
	return fc
}

// normalizeRef collapses nil and zero references to nil, the canonical
// "unset" for storage and matching: "absent", "null" and "zero" must
// all land on the same item row.
func normalizeRef(p *int64) *int64 {
	if p == nil || *p == 0 {
		return nil
	}
	return p
}
