package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/safar/horeca-store/internal/catalog"
	"github.com/safar/horeca-store/internal/models"
)

const catalogKey = "horeca:catalog:v1"

// NewRedis connects to addr and checks the server answers.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// CatalogCache serves the product list from redis and falls through to next
// on a miss. Redis failures never fail a read.
type CatalogCache struct {
	rdb  *redis.Client
	ttl  time.Duration
	next catalog.Source
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration, next catalog.Source) *CatalogCache {
	return &CatalogCache{rdb: rdb, ttl: ttl, next: next}
}

func (c *CatalogCache) Products(ctx context.Context) ([]models.Product, error) {
	products, err := c.get(ctx)
	if err == nil {
		return products, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Msg("catalog cache read failed")
	}

	products, err = c.next.Products(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		if err := c.set(ctx, products); err != nil {
			log.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return products, nil
}

// Invalidate drops the cached snapshot after a product write.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, catalogKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidate catalog: %w", err)
	}
	return nil
}

func (c *CatalogCache) get(ctx context.Context) ([]models.Product, error) {
	payload, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		return nil, fmt.Errorf("decode cached catalog: %w", err)
	}
	return products, nil
}

func (c *CatalogCache) set(ctx context.Context, products []models.Product) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, catalogKey, payload, c.ttl).Err()
}
