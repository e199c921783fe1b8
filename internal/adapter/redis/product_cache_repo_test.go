package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductDetailCache_SetGetDelete(t *testing.T) {
	rdb := newFakeRedis()
	cache := NewProductDetailCacheRepository(rdb)
	ctx := context.Background()
	product := &entity.Product{ID: "7", Name: "Lehenga", Price: 2500, Sizes: []string{"S", "M"}}

	require.NoError(t, cache.Set(ctx, product, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, rdb.ttls["product_detail:7"])

	got, err := cache.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, product, got)

	require.NoError(t, cache.Delete(ctx, "7"))
	_, err = cache.Get(ctx, "7")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductDetailCache_CorruptEntryIsEvicted(t *testing.T) {
	rdb := newFakeRedis()
	rdb.values["product_detail:7"] = "garbage"
	cache := NewProductDetailCacheRepository(rdb)

	_, err := cache.Get(context.Background(), "7")

	assert.Error(t, err)
	_, stillThere := rdb.values["product_detail:7"]
	assert.False(t, stillThere)
}

func TestProductDetailCache_SetRejectsInvalidProduct(t *testing.T) {
	cache := NewProductDetailCacheRepository(newFakeRedis())

	assert.Error(t, cache.Set(context.Background(), nil, time.Minute))
	assert.Error(t, cache.Set(context.Background(), &entity.Product{}, time.Minute))
}
