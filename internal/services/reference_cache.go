package services

import (
	"context"
	"errors"
	"log"
	"time"

	"orderportal/server/internal/models"
	"orderportal/server/internal/utils"
)

const (
	suppliersCacheKey    = "ref:suppliers"
	paymentTypesCacheKey = "ref:payment_types"
)

// JSONCache is satisfied by utils.RedisClient
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type ReferenceSource interface {
	Suppliers(ctx context.Context) ([]models.Supplier, error)
	PaymentTypes(ctx context.Context) ([]models.PaymentType, error)
}

// ReferenceCache keeps suppliers and payment types in Redis for ttl. Without
// a cache every call goes to the backend; cache errors never fail a request.
type ReferenceCache struct {
	cache JSONCache
	ttl   time.Duration
}

func NewReferenceCache(cache JSONCache, ttl time.Duration) *ReferenceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReferenceCache{cache: cache, ttl: ttl}
}

func (c *ReferenceCache) Suppliers(ctx context.Context, src ReferenceSource) ([]models.Supplier, error) {
	return cached(ctx, c, suppliersCacheKey, src.Suppliers)
}

func (c *ReferenceCache) PaymentTypes(ctx context.Context, src ReferenceSource) ([]models.PaymentType, error) {
	return cached(ctx, c, paymentTypesCacheKey, src.PaymentTypes)
}

// Flush drops both lists so the next read goes to the backend
func (c *ReferenceCache) Flush(ctx context.Context) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, suppliersCacheKey, paymentTypesCacheKey); err != nil {
		log.Printf("⚠️ failed to flush reference cache: %v", err)
	}
}

func cached[T any](ctx context.Context, c *ReferenceCache, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if c == nil || c.cache == nil {
		return load(ctx)
	}

	var out []T
	err := c.cache.GetJSON(ctx, key, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, utils.ErrCacheMiss) {
		log.Printf("⚠️ reference cache read %s: %v", key, err)
	}

	out, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, out, c.ttl); err != nil {
		log.Printf("⚠️ reference cache write %s: %v", key, err)
	}
	return out, nil
}
