package storage

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/pauljones0/bizdir/internal/models"
)

// Categories returns every catalog category in display order.
func (c *Client) Categories(ctx context.Context) ([]models.CatalogCategory, error) {
	iter := c.client.Collection(catalogCollection).OrderBy("order", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	categories := []models.CatalogCategory{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate catalog: %w", err)
		}
		var cat models.CatalogCategory
		if err := doc.DataTo(&cat); err != nil {
			return nil, fmt.Errorf("failed to unmarshal category data: %w", err)
		}
		cat.ID = doc.Ref.ID
		categories = append(categories, cat)
	}
	return categories, nil
}

// Products returns the catalog products of a category sorted by name.
func (c *Client) Products(ctx context.Context, categoryID string) ([]models.CatalogProduct, error) {
	iter := c.client.Collection(catalogProductsCollection).Where("categoryId", "==", categoryID).Documents(ctx)
	defer iter.Stop()

	products := []models.CatalogProduct{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate catalog products: %w", err)
		}
		var p models.CatalogProduct
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product data: %w", err)
		}
		p.ID = doc.Ref.ID
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}
