package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	productDetailCacheKeyPrefix = "product_detail:"
)

type productDetailCacheRepository struct {
	client redis.Cmdable
}

func NewProductDetailCacheRepository(client redis.Cmdable) repository.ProductDetailCache {
	return &productDetailCacheRepository{
		client: client,
	}
}

func (r *productDetailCacheRepository) getProductDetailKey(productID string) string {
	return productDetailCacheKeyPrefix + productID
}

func (r *productDetailCacheRepository) Get(ctx context.Context, productID string) (*entity.Product, error) {
	key := r.getProductDetailKey(productID)
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %s from redis: %w", productID, err)
	}

	var product entity.Product
	if err := json.Unmarshal(val, &product); err != nil {
		_ = r.Delete(ctx, productID)
		return nil, fmt.Errorf("failed to unmarshal cached product %s: %w", productID, err)
	}
	return &product, nil
}

func (r *productDetailCacheRepository) Set(ctx context.Context, product *entity.Product, ttl time.Duration) error {
	if product == nil || product.ID == "" {
		return errors.New("cannot cache nil product or product with empty id")
	}

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.ID, err)
	}

	if err := r.client.Set(ctx, r.getProductDetailKey(product.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache product %s in redis: %w", product.ID, err)
	}
	return nil
}

func (r *productDetailCacheRepository) Delete(ctx context.Context, productID string) error {
	if err := r.client.Del(ctx, r.getProductDetailKey(productID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached product %s from redis: %w", productID, err)
	}
	return nil
}
