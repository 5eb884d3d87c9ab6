package trackstore

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMongoURI = "mongodb://localhost:27017"

func TestSessionLifecycle(t *testing.T) {
	t.Skip("Integration test - requires MongoDB")

	ctx := context.Background()
	store, err := NewStore(ctx, testMongoURI, "storefront_tracking_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	session := &models.SessionTracking{
		SessionID: "it-sess-1",
		FactContext: models.FactContext{
			StoreID:   1,
			SessionID: "it-sess-1",
			IPAddress: "8.8.8.8",
		},
		PagesVisited:     []models.PageVisit{},
		ConversionEvents: []models.ConversionEvent{},
		IsBounce:         true,
		SessionStart:     time.Now(),
		IsActive:         true,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, store.InsertSession(ctx, session))

	// Replaying the same session id hits the unique index.
	assert.ErrorIs(t, store.InsertSession(ctx, session), ErrDuplicateSession)

	// A page visit clears the bounce flag.
	require.NoError(t, store.AppendPageVisit(ctx, "it-sess-1", models.PageVisit{
		URL:       "/products/10",
		Timestamp: time.Now(),
	}))
	got, err := store.GetSession(ctx, "it-sess-1")
	require.NoError(t, err)
	assert.False(t, got.IsBounce)
	assert.Len(t, got.PagesVisited, 1)

	// Ending is terminal.
	require.NoError(t, store.EndSession(ctx, "it-sess-1", time.Now(), 45, false))
	got, err = store.GetSession(ctx, "it-sess-1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 45, got.SessionDuration)
}

func TestAppendPageVisitUnknownSession(t *testing.T) {
	t.Skip("Integration test - requires MongoDB")

	ctx := context.Background()
	store, err := NewStore(ctx, testMongoURI, "storefront_tracking_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	err = store.AppendPageVisit(ctx, "no-such-session", models.PageVisit{Timestamp: time.Now()})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepIdleSessions(t *testing.T) {
	t.Skip("Integration test - requires MongoDB")

	ctx := context.Background()
	store, err := NewStore(ctx, testMongoURI, "storefront_tracking_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	stale := &models.SessionTracking{
		SessionID:    "it-sess-stale",
		FactContext:  models.FactContext{StoreID: 1, SessionID: "it-sess-stale"},
		PagesVisited: []models.PageVisit{},
		SessionStart: time.Now().Add(-2 * time.Hour),
		IsActive:     true,
		CreatedAt:    time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, store.InsertSession(ctx, stale))

	swept, err := store.SweepIdleSessions(ctx, 1, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, int64(1))
}
