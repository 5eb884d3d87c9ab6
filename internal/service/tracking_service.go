package service

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/geo"
	"storefront-service/internal/models"
	"storefront-service/internal/trackstore"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackingService owns the analytics pipeline: session rollups and
// append-only behavior facts. It runs both on the request path (session
// start/end, product views) and behind the fact consumer (cart and
// wishlist events arriving off Kafka).
type TrackingService struct {
	facts         *trackstore.Store
	locator       *geo.Locator
	bounceSeconds int
	idleMinutes   int
	logger        *zap.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(facts *trackstore.Store, locator *geo.Locator, bounceSeconds, idleMinutes int) *TrackingService {
	return &TrackingService{
		facts:         facts,
		locator:       locator,
		bounceSeconds: bounceSeconds,
		idleMinutes:   idleMinutes,
		logger:        util.GetLogger(),
	}
}

// StartSessionRequest opens a tracking session. A missing session id is
// generated server-side and returned to the client.
type StartSessionRequest struct {
	SessionID   string `json:"session_id"`
	UserID      *int64 `json:"user_id"`
	LandingPage string `json:"landing_page"`
	PageTitle   string `json:"page_title"`
}

// StartSession creates the session rollup. New sessions start as bounces;
// activity clears the flag. Replaying a session id is a conflict.
func (s *TrackingService) StartSession(ctx context.Context, storeID int64, req StartSessionRequest, meta Meta) (*models.SessionTracking, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.StartSession")
	defer span.End()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := time.Now()
	session := &models.SessionTracking{
		SessionID: sessionID,
		FactContext: models.FactContext{
			StoreID:   storeID,
			UserID:    req.UserID,
			SessionID: sessionID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Location:  s.locator.Resolve(ctx, meta.IPAddress),
			Device:    meta.Device,
			Referrer:  meta.Referrer,
			UTM:       meta.UTM,
		},
		PagesVisited:     []models.PageVisit{},
		ConversionEvents: []models.ConversionEvent{},
		IsBounce:         true,
		SessionStart:     now,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if session.Device.Type == "" {
		session.Device.Type = "desktop"
	}
	if req.LandingPage != "" {
		session.PagesVisited = append(session.PagesVisited, models.PageVisit{
			URL:       req.LandingPage,
			Title:     req.PageTitle,
			Timestamp: now,
		})
	}

	if err := s.facts.InsertSession(ctx, session); err != nil {
		if errors.Is(err, trackstore.ErrDuplicateSession) {
			return nil, E(KindConflict, "Session already exists")
		}
		return nil, wrapInternal(err, "Error starting session")
	}

	util.SessionsStartedTotal.Inc()
	util.FactsRecordedTotal.WithLabelValues(models.FactKindSessionStart).Inc()
	return session, nil
}

// ProductViewRequest records one product page view.
type ProductViewRequest struct {
	SessionID    string `json:"session_id"`
	ProductID    int64  `json:"product_id" binding:"required"`
	ViewDuration int    `json:"view_duration"`
	ScrollDepth  int    `json:"scroll_depth"`
	PageURL      string `json:"page_url"`
	PageTitle    string `json:"page_title"`
}

// RecordProductView appends a product view fact and, when the session is
// known, a page visit on its rollup. A view against an unknown session
// still records the fact; facts outlive their sessions.
func (s *TrackingService) RecordProductView(ctx context.Context, storeID int64, req ProductViewRequest, meta Meta) error {
	ctx, span := util.StartSpan(ctx, "TrackingService.RecordProductView")
	defer span.End()

	now := time.Now()
	view := &models.ProductView{
		FactContext: models.FactContext{
			StoreID:   storeID,
			SessionID: req.SessionID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Location:  s.locator.Resolve(ctx, meta.IPAddress),
			Device:    meta.Device,
			Referrer:  meta.Referrer,
			UTM:       meta.UTM,
		},
		ProductID:    req.ProductID,
		ViewDuration: req.ViewDuration,
		ScrollDepth:  req.ScrollDepth,
		PageTitle:    req.PageTitle,
		CreatedAt:    now,
	}
	if view.Device.Type == "" {
		view.Device.Type = "desktop"
	}

	if err := s.facts.InsertProductView(ctx, view); err != nil {
		return wrapInternal(err, "Error recording product view")
	}
	util.FactsRecordedTotal.WithLabelValues(models.FactKindProductView).Inc()

	if req.SessionID != "" {
		visit := models.PageVisit{
			URL:       req.PageURL,
			Title:     req.PageTitle,
			Timestamp: now,
			TimeSpent: req.ViewDuration,
		}
		err := s.facts.AppendPageVisit(ctx, req.SessionID, visit)
		if err != nil && !errors.Is(err, trackstore.ErrSessionNotFound) {
			return wrapInternal(err, "Error recording product view")
		}
	}
	return nil
}

// RecordCartEvent persists a cart fact arriving off the dispatch
// pipeline, resolving geolocation off the request path. Add actions also
// append a cart_add conversion to the session rollup.
func (s *TrackingService) RecordCartEvent(ctx context.Context, event *models.CartEvent) error {
	ctx, span := util.StartSpan(ctx, "TrackingService.RecordCartEvent")
	defer span.End()

	if event.Location == (models.Location{}) {
		event.Location = s.locator.Resolve(ctx, event.IPAddress)
	}
	if err := s.facts.InsertCartEvent(ctx, event); err != nil {
		return err
	}
	util.FactsRecordedTotal.WithLabelValues(models.FactKindCartEvent).Inc()

	if event.Action == models.CartActionAdd && event.SessionID != "" {
		conv := models.ConversionEvent{
			EventType: models.ConversionCartAdd,
			ProductID: event.ProductID,
			Value:     event.TotalValue,
			Timestamp: event.CreatedAt,
		}
		err := s.facts.AppendConversion(ctx, event.SessionID, conv)
		if err != nil && !errors.Is(err, trackstore.ErrSessionNotFound) {
			return err
		}
	}
	return nil
}

// RecordWishlistEvent persists a wishlist fact arriving off the dispatch
// pipeline. Add actions append a wishlist_add conversion.
func (s *TrackingService) RecordWishlistEvent(ctx context.Context, event *models.WishlistEvent) error {
	ctx, span := util.StartSpan(ctx, "TrackingService.RecordWishlistEvent")
	defer span.End()

	if event.Location == (models.Location{}) {
		event.Location = s.locator.Resolve(ctx, event.IPAddress)
	}
	if err := s.facts.InsertWishlistEvent(ctx, event); err != nil {
		return err
	}
	util.FactsRecordedTotal.WithLabelValues(models.FactKindWishlistEvent).Inc()

	if event.Action == models.CartActionAdd && event.SessionID != "" {
		conv := models.ConversionEvent{
			EventType: models.ConversionWishlistAdd,
			ProductID: event.ProductID,
			Timestamp: event.CreatedAt,
		}
		err := s.facts.AppendConversion(ctx, event.SessionID, conv)
		if err != nil && !errors.Is(err, trackstore.ErrSessionNotFound) {
			return err
		}
	}
	return nil
}

// RecordConversion appends a conversion event to a session rollup. An
// unknown session drops the conversion silently; sessions end, purchases
// still happen.
func (s *TrackingService) RecordConversion(ctx context.Context, sessionID string, event models.ConversionEvent) error {
	ctx, span := util.StartSpan(ctx, "TrackingService.RecordConversion")
	defer span.End()

	if sessionID == "" {
		return nil
	}
	err := s.facts.AppendConversion(ctx, sessionID, event)
	if errors.Is(err, trackstore.ErrSessionNotFound) {
		s.logger.Debug("Conversion for unknown session dropped",
			zap.String("session_id", sessionID),
			zap.String("event_type", event.EventType))
		return nil
	}
	if err != nil {
		return err
	}
	util.FactsRecordedTotal.WithLabelValues(models.FactKindConversion).Inc()
	return nil
}

// EndSession finalizes a session rollup: duration from start to now, and
// the bounce verdict (at most one page and under the bounce threshold).
// Ending an unknown session is a 404.
func (s *TrackingService) EndSession(ctx context.Context, sessionID string) (*models.SessionTracking, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.EndSession")
	defer span.End()

	session, err := s.facts.GetSession(ctx, sessionID)
	if errors.Is(err, trackstore.ErrSessionNotFound) {
		return nil, E(KindNotFound, "Session not found")
	}
	if err != nil {
		return nil, wrapInternal(err, "Error ending session")
	}

	end := time.Now()
	duration := int(end.Sub(session.SessionStart).Seconds())
	isBounce := isBounce(len(session.PagesVisited), duration, s.bounceSeconds)

	if err := s.facts.EndSession(ctx, sessionID, end, duration, isBounce); err != nil {
		return nil, wrapInternal(err, "Error ending session")
	}

	session.SessionEnd = &end
	session.SessionDuration = duration
	session.IsBounce = isBounce
	session.IsActive = false

	util.SessionsEndedTotal.Inc()
	util.FactsRecordedTotal.WithLabelValues(models.FactKindSessionEnd).Inc()
	return session, nil
}

// isBounce: a single page (or none) seen for less than the threshold.
func isBounce(pages, durationSeconds, bounceSeconds int) bool {
	return pages <= 1 && durationSeconds < bounceSeconds
}

// SweepIdleSessions closes sessions with no page activity inside the
// idle window. Meant to run on a schedule or behind an internal endpoint.
func (s *TrackingService) SweepIdleSessions(ctx context.Context, storeID int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.SweepIdleSessions")
	defer span.End()

	cutoff := time.Now().Add(-time.Duration(s.idleMinutes) * time.Minute)
	swept, err := s.facts.SweepIdleSessions(ctx, storeID, cutoff)
	if err != nil {
		return 0, wrapInternal(err, "Error sweeping sessions")
	}
	if swept > 0 {
		util.SessionsSweptTotal.Add(float64(swept))
		s.logger.Info("Swept idle sessions",
			zap.Int64("store_id", storeID),
			zap.Int64("count", swept))
	}
	return swept, nil
}

// ActiveSessionsPage is a page of live sessions for a store.
type ActiveSessionsPage struct {
	Sessions []models.SessionTracking `json:"sessions"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	Limit    int                      `json:"limit"`
}

// ActiveSessions lists currently active sessions, most recent first.
func (s *TrackingService) ActiveSessions(ctx context.Context, storeID int64, page, limit int) (*ActiveSessionsPage, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.ActiveSessions")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	sessions, total, err := s.facts.ListActiveSessions(ctx, storeID, limit, (page-1)*limit)
	if err != nil {
		return nil, wrapInternal(err, "Error listing sessions")
	}
	if sessions == nil {
		sessions = []models.SessionTracking{}
	}
	return &ActiveSessionsPage{Sessions: sessions, Total: total, Page: page, Limit: limit}, nil
}

// GetSession retrieves one session rollup.
func (s *TrackingService) GetSession(ctx context.Context, sessionID string) (*models.SessionTracking, error) {
	session, err := s.facts.GetSession(ctx, sessionID)
	if errors.Is(err, trackstore.ErrSessionNotFound) {
		return nil, E(KindNotFound, "Session not found")
	}
	if err != nil {
		return nil, wrapInternal(err, "Error fetching session")
	}
	return session, nil
}
