// cache.go: кэш результатов проверки имени поверх API.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package contentapi

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingClient: API с кэшированием VerifyName на короткий TTL.
// Успешный Upload инвалидирует запись для загруженного имени.
type CachingClient struct {
	next  API
	cache *expirable.LRU[string, VerifyNameResponse]
}

// NewCachingClient создаёт кэширующую обёртку.
// maxSize: максимальное количество записей, ttl: время жизни записи.
func NewCachingClient(next API, maxSize int, ttl time.Duration) *CachingClient {
	return &CachingClient{
		next:  next,
		cache: expirable.NewLRU[string, VerifyNameResponse](maxSize, nil, ttl),
	}
}

// VerifyName возвращает закэшированный ответ или обращается к API.
// Ошибки не кэшируются.
func (c *CachingClient) VerifyName(ctx context.Context, owner, name string) (*VerifyNameResponse, error) {
	key := cacheKey(owner, name)
	if cached, ok := c.cache.Get(key); ok {
		nameCacheHitsTotal.Inc()
		resp := cached
		return &resp, nil
	}
	nameCacheMissesTotal.Inc()

	resp, err := c.next.VerifyName(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *resp)
	return resp, nil
}

// Upload передаёт запрос дальше и сбрасывает кэш для загруженного имени.
func (c *CachingClient) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	resp, err := c.next.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Remove(cacheKey(req.Owner, req.Name))
	c.cache.Remove(cacheKey(resp.Owner, resp.Name))
	return resp, nil
}

// Len возвращает текущее количество записей.
func (c *CachingClient) Len() int {
	return c.cache.Len()
}

func cacheKey(owner, name string) string {
	return owner + "\x00" + name
}
