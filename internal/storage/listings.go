package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/bizdir/internal/models"
)

// CreateListing stores a listing under a generated ID and returns the ID.
func (c *Client) CreateListing(ctx context.Context, l models.Listing) (string, error) {
	docRef := c.client.Collection(listingsCollection).NewDoc()
	if _, err := docRef.Create(ctx, l); err != nil {
		return "", fmt.Errorf("failed to create listing: %w", err)
	}
	return docRef.ID, nil
}

// GetListing retrieves a listing by its document ID.
func (c *Client) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	doc, err := getDoc(ctx, c.client.Collection(listingsCollection).Doc(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", id, err)
	}
	return listingFromDoc(doc)
}

// UpdateListing writes the owner-editable fields of l.
func (c *Client) UpdateListing(ctx context.Context, l models.Listing) error {
	docRef := c.client.Collection(listingsCollection).Doc(l.ID)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "title", Value: l.Title},
		{Path: "description", Value: l.Description},
		{Path: "category", Value: l.Category},
		{Path: "subcategory", Value: l.Subcategory},
		{Path: "price", Value: l.Price},
		{Path: "unit", Value: l.Unit},
		{Path: "contactPhone", Value: l.ContactPhone},
		{Path: "contactEmail", Value: l.ContactEmail},
		{Path: "whatsapp", Value: l.WhatsApp},
		{Path: "website", Value: l.Website},
		{Path: "address", Value: l.Address},
		{Path: "city", Value: l.City},
		{Path: "images", Value: l.Images},
		{Path: "tags", Value: l.Tags},
		{Path: "status", Value: l.Status},
		{Path: "updatedAt", Value: l.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to update listing %s: %w", l.ID, err)
	}
	return nil
}

// SetListingStatus changes the moderation status.
func (c *Client) SetListingStatus(ctx context.Context, id string, s models.ListingStatus, now time.Time) error {
	_, err := c.client.Collection(listingsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: s},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to set status of listing %s: %w", id, err)
	}
	return nil
}

// SetModerationMessageID records the moderators' message for the listing.
func (c *Client) SetModerationMessageID(ctx context.Context, id, messageID string) error {
	_, err := c.client.Collection(listingsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "moderationMessageId", Value: messageID},
	})
	if err != nil {
		return fmt.Errorf("failed to save moderation message for listing %s: %w", id, err)
	}
	return nil
}

// DeleteListing removes the listing document.
func (c *Client) DeleteListing(ctx context.Context, id string) error {
	if _, err := c.client.Collection(listingsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, err)
	}
	return nil
}

// ListingsByOwner returns up to limit of the owner's listings, newest first,
// starting after the listing whose ID is cursor (if any).
func (c *Client) ListingsByOwner(ctx context.Context, ownerID, cursor string, limit int) ([]models.Listing, error) {
	collectionRef := c.client.Collection(listingsCollection)
	q := collectionRef.
		Where("ownerId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)

	if cursor != "" {
		snap, err := getDoc(ctx, collectionRef.Doc(cursor))
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrInvalidCursor
			}
			return nil, fmt.Errorf("failed to resolve cursor %s: %w", cursor, err)
		}
		if owner, _ := snap.DataAt("ownerId"); owner != ownerID {
			return nil, models.ErrInvalidCursor
		}
		q = q.StartAfter(snap)
	}

	return collectListings(q.Documents(ctx))
}

// ActiveListings returns up to limit active listings, newest first,
// optionally restricted to a category.
func (c *Client) ActiveListings(ctx context.Context, category string, limit int) ([]models.Listing, error) {
	q := c.client.Collection(listingsCollection).Where("status", "==", string(models.StatusActive))
	if category != "" {
		q = q.Where("category", "==", category)
	}
	q = q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	return collectListings(q.Documents(ctx))
}

func collectListings(iter *firestore.DocumentIterator) ([]models.Listing, error) {
	defer iter.Stop()

	listings := []models.Listing{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate listings: %w", err)
		}
		l, err := listingFromDoc(doc)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, nil
}

func listingFromDoc(doc *firestore.DocumentSnapshot) (*models.Listing, error) {
	var l models.Listing
	if err := doc.DataTo(&l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing data: %w", err)
	}
	l.ID = doc.Ref.ID
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return &l, nil
}
