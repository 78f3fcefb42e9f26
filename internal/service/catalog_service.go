package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/infrastructure/redis"
	"github.com/yourorg/storefront/internal/reliability/circuitbreaker"
	"github.com/yourorg/storefront/pkg/cache"
)

const (
	productCacheTTL  = 30 * time.Second
	listCacheTTL     = 15 * time.Second
	productKeyPrefix = "product:"
	listKeyPrefix    = "products:list:"
)

// CatalogService handles product CRUD. Reads are served through two cache
// tiers: a per-process TTL cache for single products and a shared Redis
// cache for list pages. Redis sits behind a circuit breaker so an outage
// degrades to plain database reads instead of stalling every request.
type CatalogService struct {
	productRepo domain.ProductRepository
	memCache    *cache.Cache
	redisClient *redis.Client
	breaker     *circuitbreaker.CircuitBreaker
	maxLimit    int
	logger      *slog.Logger
}

// NewCatalogService creates a catalog service. redisClient may be nil, in
// which case list pages always hit the database.
func NewCatalogService(
	productRepo domain.ProductRepository,
	memCache *cache.Cache,
	redisClient *redis.Client,
	maxLimit int,
	logger *slog.Logger,
) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}

	return &CatalogService{
		productRepo: productRepo,
		memCache:    memCache,
		redisClient: redisClient,
		breaker:     circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		maxLimit:    maxLimit,
		logger:      logger,
	}
}

// List returns a page of products. The caller-supplied limit is clamped to
// the configured maximum rather than trusted as-is.
func (s *CatalogService) List(ctx context.Context, offset, limit int) ([]*domain.Product, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	key := fmt.Sprintf("%s%d:%d", listKeyPrefix, offset, limit)
	if cached, ok := s.listFromRedis(ctx, key); ok {
		return cached, nil
	}

	products, err := s.productRepo.List(offset, limit)
	if err != nil {
		return nil, err
	}

	s.listToRedis(ctx, key, products)
	return products, nil
}

// Get returns a single product, served from the per-process cache when fresh
func (s *CatalogService) Get(id int64) (*domain.Product, error) {
	key := fmt.Sprintf("%s%d", productKeyPrefix, id)
	if s.memCache != nil {
		if v, ok := s.memCache.Get(key); ok {
			return v.(*domain.Product), nil
		}
	}

	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if s.memCache != nil {
		s.memCache.Set(key, product, productCacheTTL)
	}
	return product, nil
}

// Create adds a product to the catalog
func (s *CatalogService) Create(ctx context.Context, product *domain.Product) error {
	if product.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if product.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if product.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}

	if err := s.productRepo.Create(product); err != nil {
		return err
	}

	s.invalidateLists(ctx)
	s.logger.Info("product created",
		slog.Int64("id", product.ID),
		slog.String("name", product.Name),
	)
	return nil
}

// Update applies a sparse patch; nil fields stay untouched
func (s *CatalogService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}

	product, err := s.productRepo.Update(id, patch)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return product, nil
}

// Delete removes a product. Orders referencing it keep their historical
// product id.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.logger.Info("product deleted", slog.Int64("id", id))
	return nil
}

// InvalidateProduct drops the cached copy of a product. Called by the order
// path after a stock decrement so reads do not serve stale stock for the
// cache TTL.
func (s *CatalogService) InvalidateProduct(ctx context.Context, id int64) {
	s.invalidate(ctx, id)
}

func (s *CatalogService) invalidate(ctx context.Context, id int64) {
	if s.memCache != nil {
		s.memCache.Delete(fmt.Sprintf("%s%d", productKeyPrefix, id))
	}
	s.invalidateLists(ctx)
}

func (s *CatalogService) invalidateLists(ctx context.Context) {
	if s.redisClient == nil || !s.breaker.AllowRequest() {
		return
	}
	keys, err := s.redisClient.Keys(ctx, listKeyPrefix+"*")
	if err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("failed to scan list cache keys", slog.String("error", err.Error()))
		return
	}
	for _, key := range keys {
		if err := s.redisClient.Delete(ctx, key); err != nil {
			s.breaker.RecordFailure()
			s.logger.Warn("failed to invalidate list cache", slog.String("key", key))
			return
		}
	}
	s.breaker.RecordSuccess()
}

func (s *CatalogService) listFromRedis(ctx context.Context, key string) ([]*domain.Product, bool) {
	if s.redisClient == nil || !s.breaker.AllowRequest() {
		return nil, false
	}

	raw, err := s.redisClient.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			s.breaker.RecordFailure()
		}
		return nil, false
	}
	s.breaker.RecordSuccess()

	var products []*domain.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		s.logger.Warn("corrupt list cache entry", slog.String("key", key))
		return nil, false
	}
	return products, true
}

func (s *CatalogService) listToRedis(ctx context.Context, key string, products []*domain.Product) {
	if s.redisClient == nil || !s.breaker.AllowRequest() {
		return
	}

	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, string(raw), listCacheTTL); err != nil {
		s.breaker.RecordFailure()
		return
	}
	s.breaker.RecordSuccess()
}
