package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/pkg/cache"
)

// recordingProductRepo wraps a repository and remembers the arguments of the
// last List call plus how often each method was hit.
type recordingProductRepo struct {
	domain.ProductRepository
	lastOffset, lastLimit int
	listCalls, getCalls   int
}

func (r *recordingProductRepo) List(offset, limit int) ([]*domain.Product, error) {
	r.listCalls++
	r.lastOffset, r.lastLimit = offset, limit
	return r.ProductRepository.List(offset, limit)
}

func (r *recordingProductRepo) GetByID(id int64) (*domain.Product, error) {
	r.getCalls++
	return r.ProductRepository.GetByID(id)
}

func seedProducts(t *testing.T, store *memStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := &domain.Product{Name: "Widget", Price: 10.0, Quantity: 5}
		if err := store.Create(p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
}

func TestListClampsPagination(t *testing.T) {
	store := newMemStore()
	seedProducts(t, store, 3)
	repo := &recordingProductRepo{ProductRepository: store}

	s := NewCatalogService(repo, nil, nil, 100, nil)
	ctx := context.Background()

	if _, err := s.List(ctx, -5, 100000); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if repo.lastOffset != 0 || repo.lastLimit != 100 {
		t.Fatalf("expected offset 0 limit 100, repo saw %d/%d", repo.lastOffset, repo.lastLimit)
	}

	if _, err := s.List(ctx, 2, 0); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if repo.lastOffset != 2 || repo.lastLimit != 10 {
		t.Fatalf("expected default limit 10, repo saw %d/%d", repo.lastOffset, repo.lastLimit)
	}
}

func TestGetServesFromCache(t *testing.T) {
	store := newMemStore()
	seedProducts(t, store, 1)
	repo := &recordingProductRepo{ProductRepository: store}

	s := NewCatalogService(repo, cache.New(), nil, 100, nil)

	first, err := s.Get(1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	second, err := s.Get(1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if repo.getCalls != 1 {
		t.Fatalf("expected one repository hit, got %d", repo.getCalls)
	}
	if first.ID != second.ID {
		t.Fatalf("cache returned a different product: %d vs %d", first.ID, second.ID)
	}
}

func TestUpdateSparsePatch(t *testing.T) {
	store := newMemStore()
	seedProducts(t, store, 1)

	s := NewCatalogService(store, cache.New(), nil, 100, nil)
	ctx := context.Background()

	price := 12.5
	updated, err := s.Update(ctx, 1, domain.ProductPatch{Price: &price})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Price != 12.5 {
		t.Fatalf("expected price 12.5, got %v", updated.Price)
	}
	if updated.Name != "Widget" || updated.Quantity != 5 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	// A stale cached copy must not survive the update.
	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Price != 12.5 {
		t.Fatalf("cache served stale product after update: %v", got.Price)
	}
}

func TestUpdateValidation(t *testing.T) {
	store := newMemStore()
	seedProducts(t, store, 1)
	s := NewCatalogService(store, nil, nil, 100, nil)
	ctx := context.Background()

	bad := -1.0
	if _, err := s.Update(ctx, 1, domain.ProductPatch{Price: &bad}); err == nil {
		t.Fatal("expected negative price to be rejected")
	}
	badQty := -1
	if _, err := s.Update(ctx, 1, domain.ProductPatch{Quantity: &badQty}); err == nil {
		t.Fatal("expected negative quantity to be rejected")
	}
	if _, err := s.Update(ctx, 42, domain.ProductPatch{}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	store := newMemStore()
	s := NewCatalogService(store, nil, nil, 100, nil)
	ctx := context.Background()

	if err := s.Create(ctx, &domain.Product{Price: 1}); err == nil {
		t.Fatal("expected missing name to be rejected")
	}
	if err := s.Create(ctx, &domain.Product{Name: "x", Price: -1}); err == nil {
		t.Fatal("expected negative price to be rejected")
	}
	if err := s.Create(ctx, &domain.Product{Name: "x", Quantity: -1}); err == nil {
		t.Fatal("expected negative quantity to be rejected")
	}
}

func TestDeleteEvictsCache(t *testing.T) {
	store := newMemStore()
	seedProducts(t, store, 1)
	s := NewCatalogService(store, cache.New(), nil, 100, nil)
	ctx := context.Background()

	if _, err := s.Get(1); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on double delete, got %v", err)
	}
}
