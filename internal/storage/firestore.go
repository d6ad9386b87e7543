// Package storage is the Firestore persistence layer for profiles, listings,
// daily analytics and the read-only catalog.
package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/bizdir/internal/models"
)

const (
	usersCollection           = "users"
	listingsCollection        = "listings"
	analyticsCollection       = "analytics"
	analyticsDailyCollection  = "daily"
	catalogCollection         = "catalog"
	catalogProductsCollection = "catalogProducts"
)

type Client struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID string) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Ping reads a document that need not exist, to prove the connection works.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.Collection(catalogCollection).Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// getDoc fetches a document, mapping a missing document to models.ErrNotFound.
func getDoc(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if !doc.Exists() {
		return nil, models.ErrNotFound
	}
	return doc, nil
}
