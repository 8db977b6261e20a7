package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/channel/models"
	rplatform "github.com/mrAr2rD/contentForceTG-sub000/internal/platform/redis"
)

// ChannelCache кэширует каналы по токену бота для горячего пути webhook-а.
// Сырой токен не попадает в Redis: ключ строится из его хэша, а из значения
// токен исключается и восстанавливается из токена запроса при чтении.
// Секрет webhook остаётся в значении — горячий путь аутентифицируется им.
type ChannelCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewChannelCache(client *rplatform.Client, ttl time.Duration) *ChannelCache {
	return &ChannelCache{client: client, ttl: ttl}
}

func (c *ChannelCache) keyByToken(botToken string) string {
	sum := sha256.Sum256([]byte(botToken))
	return fmt.Sprintf("channel:token:%s", hex.EncodeToString(sum[:8]))
}

// cachedChannel затеняет BotToken, чтобы тот не сериализовался в значение.
type cachedChannel struct {
	models.ExternalChannel
	BotToken string `json:"-"`
}

func encodeChannel(ch *models.ExternalChannel) ([]byte, error) {
	return json.Marshal(cachedChannel{ExternalChannel: *ch})
}

func decodeChannel(b []byte, botToken string) (*models.ExternalChannel, error) {
	var cached cachedChannel
	if err := json.Unmarshal(b, &cached); err != nil {
		return nil, err
	}
	ch := cached.ExternalChannel
	ch.BotToken = botToken
	return &ch, nil
}

// Set сохраняет канал под хэшем его токена.
func (c *ChannelCache) Set(ctx context.Context, ch *models.ExternalChannel) error {
	b, err := encodeChannel(ch)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyByToken(ch.BotToken), b, c.ttl).Err()
}

// GetByToken возвращает закэшированный канал или nil при промахе.
func (c *ChannelCache) GetByToken(ctx context.Context, botToken string) (*models.ExternalChannel, error) {
	v, err := c.client.Get(ctx, c.keyByToken(botToken)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return decodeChannel(v, botToken)
}

// Invalidate удаляет запись канала (ротация секрета, отключение).
func (c *ChannelCache) Invalidate(ctx context.Context, botToken string) error {
	return c.client.Del(ctx, c.keyByToken(botToken)).Err()
}
