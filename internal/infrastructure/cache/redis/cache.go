// internal/infrastructure/cache/redis/cache.go
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const statsSnapshotTTL = 24 * time.Hour

// Cache - обертка над Redis для дедупликации сообщений и снимков статистики.
// Нулевой *Cache работает как no-op: мост живет и без Redis.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache подключается к Redis и проверяет соединение
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Cache{
		client: client,
		prefix: "signalbridge:",
	}, nil
}

// NewCacheWithClient создает Cache с существующим клиентом
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "signalbridge:",
	}
}

// Set устанавливает значение в Redis с TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Get получает значение из Redis; redis.Nil при отсутствии ключа
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return redis.Nil
	}

	data, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Delete удаляет ключ из Redis
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}

// SeenMessage атомарно отмечает сообщение обработанным.
// Возвращает true если сообщение уже встречалось в пределах ttl.
func (c *Cache) SeenMessage(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if c == nil || messageID == "" {
		return false, nil
	}

	first, err := c.client.SetNX(ctx, c.prefix+"dedup:"+messageID, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !first, nil
}

// SnapshotStats сохраняет снимок статистики сессии
func (c *Cache) SnapshotStats(ctx context.Context, summary interface{}) error {
	return c.Set(ctx, "stats:session", summary, statsSnapshotTTL)
}

// Close закрывает соединение с Redis
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
