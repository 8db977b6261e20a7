package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	appredis "github.com/mrAr2rD/contentForceTG-sub000/internal/platform/redis"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/invitelinks/models"
)

const cacheTTL = 10 * time.Minute

// LinkCache кэширует инвайт-ссылки по URL, чтобы не ходить в базу
// на каждый chat_member апдейт.
type LinkCache struct {
	client *appredis.Client
}

func NewLinkCache(client *appredis.Client) *LinkCache {
	return &LinkCache{client: client}
}

func linkKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("invite_link:url:%s", hex.EncodeToString(sum[:8]))
}

func (c *LinkCache) Set(ctx context.Context, link *models.InviteLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal invite link: %w", err)
	}
	return c.client.Set(ctx, linkKey(link.InviteLink), data, cacheTTL).Err()
}

// GetByURL возвращает (nil, nil) при cache miss.
func (c *LinkCache) GetByURL(ctx context.Context, url string) (*models.InviteLink, error) {
	data, err := c.client.Get(ctx, linkKey(url)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invite link from cache: %w", err)
	}

	var link models.InviteLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invite link: %w", err)
	}
	return &link, nil
}

func (c *LinkCache) Invalidate(ctx context.Context, url string) error {
	return c.client.Del(ctx, linkKey(url)).Err()
}
