// Package trackstore persists analytics facts to MongoDB. Fact
// collections are append-only; the session rollup is the one document
// that gets partial updates as its session progresses.
package trackstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDuplicateSession = errors.New("session already exists")
)

type Store struct {
	client         *mongo.Client
	sessions       *mongo.Collection
	productViews   *mongo.Collection
	cartEvents     *mongo.Collection
	wishlistEvents *mongo.Collection
}

// NewStore connects to MongoDB and prepares the fact collections.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:         client,
		sessions:       db.Collection("session_tracking"),
		productViews:   db.Collection("product_views"),
		cartEvents:     db.Collection("cart_events"),
		wishlistEvents: db.Collection("wishlist_events"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "store_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	for _, coll := range []*mongo.Collection{s.productViews, s.cartEvents, s.wishlistEvents} {
		_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "session_id", Value: 1}}},
			{Keys: bson.D{{Key: "product_id", Value: 1}}},
		})
		if err != nil {
			return fmt.Errorf("failed to create fact indexes: %w", err)
		}
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// InsertSession creates the rollup document for a new session. The
// unique index on session_id surfaces a replay as ErrDuplicateSession.
func (s *Store) InsertSession(ctx context.Context, session *models.SessionTracking) error {
	_, err := s.sessions.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSession
	}
	return err
}

// GetSession retrieves a session rollup by its session id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.SessionTracking, error) {
	var session models.SessionTracking
	err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// AppendPageVisit pushes a page visit onto the rollup and clears the
// bounce flag: a second page view means the session is not a bounce.
func (s *Store) AppendPageVisit(ctx context.Context, sessionID string, visit models.PageVisit) error {
	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$push": bson.M{"pages_visited": visit},
			"$set": bson.M{
				"is_bounce":  false,
				"is_active":  true,
				"updated_at": time.Now(),
			},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendConversion pushes a conversion event onto the rollup.
func (s *Store) AppendConversion(ctx context.Context, sessionID string, event models.ConversionEvent) error {
	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$push": bson.M{"conversion_events": event},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// EndSession finalizes the rollup. Terminal: is_active is never set back.
func (s *Store) EndSession(ctx context.Context, sessionID string, end time.Time, duration int, isBounce bool) error {
	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"session_end":      end,
			"session_duration": duration,
			"is_active":        false,
			"is_bounce":        isBounce,
			"updated_at":       time.Now(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SweepIdleSessions marks sessions inactive when they started before the
// cutoff and have seen no page activity since it. Returns the number of
// sessions swept.
func (s *Store) SweepIdleSessions(ctx context.Context, storeID int64, cutoff time.Time) (int64, error) {
	res, err := s.sessions.UpdateMany(ctx,
		bson.M{
			"store_id":  storeID,
			"is_active": true,
			"$nor": []bson.M{
				{"session_start": bson.M{"$gte": cutoff}},
				{"pages_visited.timestamp": bson.M{"$gte": cutoff}},
			},
		},
		bson.M{"$set": bson.M{
			"is_active":   false,
			"session_end": time.Now(),
			"updated_at":  time.Now(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListActiveSessions returns a page of currently active sessions for a
// store, most recent first, plus the total active count.
func (s *Store) ListActiveSessions(ctx context.Context, storeID int64, limit, offset int) ([]models.SessionTracking, int64, error) {
	filter := bson.M{"store_id": storeID, "is_active": true}

	total, err := s.sessions.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "session_start", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var sessions []models.SessionTracking
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// InsertProductView appends a product view fact.
func (s *Store) InsertProductView(ctx context.Context, view *models.ProductView) error {
	_, err := s.productViews.InsertOne(ctx, view)
	return err
}

// InsertCartEvent appends a cart event fact.
func (s *Store) InsertCartEvent(ctx context.Context, event *models.CartEvent) error {
	_, err := s.cartEvents.InsertOne(ctx, event)
	return err
}

// InsertWishlistEvent appends a wishlist event fact.
func (s *Store) InsertWishlistEvent(ctx context.Context, event *models.WishlistEvent) error {
	_, err := s.wishlistEvents.InsertOne(ctx, event)
	return err
}
