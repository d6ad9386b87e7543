// Package catalog serves the read-only category and product reference data.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pauljones0/bizdir/internal/models"
)

const (
	DefaultTTL   = 10 * time.Minute
	maxCacheKeys = 256

	categoriesKey = "categories"
)

// Repository reads catalog reference data.
type Repository interface {
	Categories(ctx context.Context) ([]models.CatalogCategory, error)
	Products(ctx context.Context, categoryID string) ([]models.CatalogProduct, error)
}

// Service caches catalog reads for ttl. The catalog only changes through
// the admin console so stale reads for a few minutes are acceptable.
type Service struct {
	repo       Repository
	categories *expirable.LRU[string, []models.CatalogCategory]
	products   *expirable.LRU[string, []models.CatalogProduct]
}

func New(repo Repository, ttl time.Duration) *Service {
	return &Service{
		repo:       repo,
		categories: expirable.NewLRU[string, []models.CatalogCategory](1, nil, ttl),
		products:   expirable.NewLRU[string, []models.CatalogProduct](maxCacheKeys, nil, ttl),
	}
}

// Categories returns all categories in display order.
func (s *Service) Categories(ctx context.Context) ([]models.CatalogCategory, error) {
	if cats, ok := s.categories.Get(categoriesKey); ok {
		return cats, nil
	}
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	s.categories.Add(categoriesKey, cats)
	return cats, nil
}

// Category finds a category by ID or slug.
func (s *Service) Category(ctx context.Context, idOrSlug string) (*models.CatalogCategory, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if cats[i].ID == idOrSlug || strings.EqualFold(cats[i].Slug, idOrSlug) {
			return &cats[i], nil
		}
	}
	return nil, models.ErrNotFound
}

// Products returns the products of a category, resolving slugs to IDs.
func (s *Service) Products(ctx context.Context, idOrSlug string) ([]models.CatalogProduct, error) {
	cat, err := s.Category(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if products, ok := s.products.Get(cat.ID); ok {
		return products, nil
	}
	products, err := s.repo.Products(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	s.products.Add(cat.ID, products)
	return products, nil
}

// Purge drops every cached entry.
func (s *Service) Purge() {
	s.categories.Purge()
	s.products.Purge()
}
