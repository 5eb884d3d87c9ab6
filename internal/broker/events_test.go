package broker

import (
	"context"
	"encoding/json"
	"testing"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactKey(t *testing.T) {
	userID := int64(42)

	t.Run("session id wins", func(t *testing.T) {
		fc := models.FactContext{StoreID: 1, UserID: &userID, SessionID: "sess-9"}
		assert.Equal(t, "session-sess-9", factKey(fc))
	})

	t.Run("user without session", func(t *testing.T) {
		fc := models.FactContext{StoreID: 1, UserID: &userID}
		assert.Equal(t, "user-42", factKey(fc))
	})

	t.Run("store fallback", func(t *testing.T) {
		fc := models.FactContext{StoreID: 1}
		assert.Equal(t, "store-1", factKey(fc))
	})
}

func TestNewBaseFact(t *testing.T) {
	fact := newBaseFact(models.FactKindCartEvent)

	assert.Equal(t, models.FactKindCartEvent, fact.FactKind)
	assert.NotEmpty(t, fact.FactID)
	assert.False(t, fact.Timestamp.IsZero())
}

func TestFactHandlerRouting(t *testing.T) {
	handler := NewFactHandler()

	var gotCart *models.CartEventFact
	var gotConversion *models.ConversionFact
	handler.OnCartEvent(func(_ context.Context, fact *models.CartEventFact) error {
		gotCart = fact
		return nil
	})
	handler.OnConversion(func(_ context.Context, fact *models.ConversionFact) error {
		gotConversion = fact
		return nil
	})

	cartFact := models.CartEventFact{
		BaseFact: newBaseFact(models.FactKindCartEvent),
		Event: models.CartEvent{
			FactContext: models.FactContext{StoreID: 1, SessionID: "sess-1"},
			ProductID:   10,
			Action:      models.CartActionAdd,
			Quantity:    2,
		},
	}
	payload, err := json.Marshal(cartFact)
	require.NoError(t, err)

	require.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	require.NotNil(t, gotCart)
	assert.Equal(t, int64(10), gotCart.Event.ProductID)
	assert.Equal(t, models.CartActionAdd, gotCart.Event.Action)
	assert.Nil(t, gotConversion)
}

func TestFactHandlerUnknownKindIgnored(t *testing.T) {
	handler := NewFactHandler()

	payload, err := json.Marshal(newBaseFact("SOMETHING_ELSE"))
	require.NoError(t, err)

	assert.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: payload}))
}

func TestFactHandlerMalformedMessage(t *testing.T) {
	handler := NewFactHandler()

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
