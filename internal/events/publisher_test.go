package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func scrapedProduct() *models.Product {
	p := models.NewProduct("https://www.screwfix.com/p/sharp-sand-bulk-bag/12345")
	p.Name = "Sharp Sand Bulk Bag"
	p.SKU = "12345"
	p.PriceIncVAT = 54.99
	return p
}

func TestPublishProductScraped(t *testing.T) {
	t.Run("adds entry to stream", func(t *testing.T) {
		client := new(MockRedisClient)
		var captured *redis.XAddArgs
		client.On("XAdd", mock.Anything, mock.AnythingOfType("*redis.XAddArgs")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*redis.XAddArgs) }).
			Return(nil)

		pub := NewPublisher(client, "", nil)
		require.NoError(t, pub.PublishProductScraped(context.Background(), scrapedProduct()))

		require.NotNil(t, captured)
		assert.Equal(t, DefaultStream, captured.Stream)

		values := captured.Values.(map[string]interface{})
		assert.Equal(t, "PRODUCT_SCRAPED", values["event_type"])
		assert.Equal(t, "12345", values["sku"])
		assert.NotEmpty(t, values["event_id"])

		var payload ProductScrapedPayload
		require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &payload))
		assert.Equal(t, values["event_id"], payload.EventID)
		assert.Equal(t, "Sharp Sand Bulk Bag", payload.Product.Name)
		client.AssertExpectations(t)
	})

	t.Run("wraps redis errors", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		pub := NewPublisher(client, "stream:test", nil)
		err := pub.PublishProductScraped(context.Background(), scrapedProduct())

		assert.ErrorContains(t, err, "stream:test")
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		var pub *Publisher
		assert.NoError(t, pub.PublishProductScraped(context.Background(), scrapedProduct()))
		assert.NoError(t, pub.Close())
	})
}

func TestConnectWithoutAddressDisablesEvents(t *testing.T) {
	pub, err := Connect(context.Background(), "", "", 0, "", nil)
	require.NoError(t, err)
	assert.Nil(t, pub)
}
