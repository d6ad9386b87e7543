package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pauljones0/bizdir/internal/models"
)

type mockRepo struct {
	categoryCalls int
	productCalls  map[string]int
	err           error
}

func (m *mockRepo) Categories(_ context.Context) ([]models.CatalogCategory, error) {
	m.categoryCalls++
	if m.err != nil {
		return nil, m.err
	}
	return []models.CatalogCategory{
		{ID: "c1", Name: "Food", Slug: "food", Order: 1},
		{ID: "c2", Name: "Services", Slug: "services", Order: 2},
	}, nil
}

func (m *mockRepo) Products(_ context.Context, categoryID string) ([]models.CatalogProduct, error) {
	if m.productCalls == nil {
		m.productCalls = make(map[string]int)
	}
	m.productCalls[categoryID]++
	return []models.CatalogProduct{{ID: "p1", CategoryID: categoryID, Name: "Rice"}}, nil
}

func TestCategories_Cached(t *testing.T) {
	repo := &mockRepo{}
	s := New(repo, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats, err := s.Categories(ctx)
		if err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		if len(cats) != 2 {
			t.Fatalf("got %d categories", len(cats))
		}
	}
	if repo.categoryCalls != 1 {
		t.Errorf("repository called %d times, want 1", repo.categoryCalls)
	}

	s.Purge()
	s.Categories(ctx)
	if repo.categoryCalls != 2 {
		t.Errorf("repository called %d times after Purge, want 2", repo.categoryCalls)
	}
}

func TestCategories_ErrorNotCached(t *testing.T) {
	repo := &mockRepo{err: errors.New("unavailable")}
	s := New(repo, time.Minute)

	if _, err := s.Categories(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	repo.err = nil
	if _, err := s.Categories(context.Background()); err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if repo.categoryCalls != 2 {
		t.Errorf("repository called %d times, want 2", repo.categoryCalls)
	}
}

func TestProducts_BySlugOrID(t *testing.T) {
	repo := &mockRepo{}
	s := New(repo, time.Minute)
	ctx := context.Background()

	if _, err := s.Products(ctx, "FOOD"); err != nil {
		t.Fatalf("Products(slug) error = %v", err)
	}
	products, err := s.Products(ctx, "c1")
	if err != nil {
		t.Fatalf("Products(id) error = %v", err)
	}
	if len(products) != 1 || products[0].CategoryID != "c1" {
		t.Errorf("products = %+v", products)
	}
	if repo.productCalls["c1"] != 1 {
		t.Errorf("repository called %d times for c1, want 1", repo.productCalls["c1"])
	}

	if _, err := s.Products(ctx, "toys"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown category error = %v, want ErrNotFound", err)
	}
}
