package redis

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
)

func cacheableChannel() *models.ExternalChannel {
	return &models.ExternalChannel{
		ID:            uuid.New(),
		ProjectID:     uuid.New(),
		BotToken:      "42:AAFcy3mK0secret",
		BotUsername:   "analytics_bot",
		ChatID:        -100123,
		Title:         "Release notes",
		WebhookSecret: "a1b2c3",
		Verified:      true,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestEncodeChannel_OmitsBotToken(t *testing.T) {
	ch := cacheableChannel()

	b, err := encodeChannel(ch)
	require.NoError(t, err)

	assert.NotContains(t, string(b), ch.BotToken)
	assert.NotContains(t, string(b), "BotToken")
}

func TestDecodeChannel_RestoresTokenFromLookup(t *testing.T) {
	ch := cacheableChannel()

	b, err := encodeChannel(ch)
	require.NoError(t, err)

	decoded, err := decodeChannel(b, ch.BotToken)
	require.NoError(t, err)

	assert.Equal(t, ch.ID, decoded.ID)
	assert.Equal(t, ch.BotToken, decoded.BotToken)
	assert.Equal(t, ch.WebhookSecret, decoded.WebhookSecret)
	assert.Equal(t, ch.ChatID, decoded.ChatID)
	assert.True(t, decoded.Verified)
}
