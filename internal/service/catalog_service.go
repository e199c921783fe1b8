package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

const (
	defaultProductCacheTTL = 5 * time.Minute
)

// ProductFilter narrows a product listing. Empty fields match everything;
// Search is a case-insensitive substring of name, description or material.
type ProductFilter struct {
	Category    string
	Subcategory string
	Search      string
}

func (f ProductFilter) Match(p entity.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Subcategory != "" && p.Subcategory != f.Subcategory {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) &&
			!strings.Contains(strings.ToLower(p.Material), term) {
			return false
		}
	}
	return true
}

type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]entity.Product, error)
	GetProduct(ctx context.Context, productID string) (*entity.Product, error)
}

type catalogService struct {
	catalog  repository.ProductCatalog
	cache    repository.ProductDetailCache
	log      logger.Logger
	cacheTTL time.Duration
}

type CatalogServiceConfig struct {
	ProductCacheTTL time.Duration
}

// NewCatalogService builds the catalog read path. cache may be nil.
func NewCatalogService(
	catalog repository.ProductCatalog,
	cache repository.ProductDetailCache,
	log logger.Logger,
	cfg CatalogServiceConfig,
) CatalogService {
	cacheTTL := cfg.ProductCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultProductCacheTTL
	}
	return &catalogService{
		catalog:  catalog,
		cache:    cache,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]entity.Product, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		s.log.Errorf("Failed to list products from catalog: %v", err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}

	filtered := make([]entity.Product, 0, len(products))
	for _, p := range products {
		if filter.Match(p) {
			filtered = append(filtered, p)
		}
	}
	s.log.Debugf("Catalog filter %+v matched %d of %d products", filter, len(filtered), len(products))
	return filtered, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	if productID == "" {
		return nil, repository.ErrNotFound
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, productID)
		if err == nil && cached != nil {
			s.log.Debugf("Product %s found in cache", productID)
			return cached, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("Error getting product %s from cache: %v. Fetching from catalog.", productID, err)
		}
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.log.Errorf("Failed to get product %s from catalog: %v", productID, err)
		return nil, fmt.Errorf("product %s unavailable: %w", productID, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product, s.cacheTTL); err != nil {
			s.log.Warnf("Failed to cache product %s: %v", productID, err)
		}
	}
	return product, nil
}
