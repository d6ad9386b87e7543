package listing

import (
	"context"
	"time"

	"github.com/pauljones0/bizdir/internal/models"
)

// Store abstracts the storage layer for listing documents.
type Store interface {
	CreateListing(ctx context.Context, l models.Listing) (string, error)
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	UpdateListing(ctx context.Context, l models.Listing) error
	SetListingStatus(ctx context.Context, id string, s models.ListingStatus, now time.Time) error
	SetModerationMessageID(ctx context.Context, id, messageID string) error
	DeleteListing(ctx context.Context, id string) error
	ListingsByOwner(ctx context.Context, ownerID, cursor string, limit int) ([]models.Listing, error)
	ActiveListings(ctx context.Context, category string, limit int) ([]models.Listing, error)
}

// ImageStore abstracts the blob storage for listing images.
type ImageStore interface {
	UploadAll(ctx context.Context, uid string, imgs []models.ImageUpload) ([]string, error)
	DeleteByURL(ctx context.Context, url string) error
}

// Notifier abstracts the moderation notification layer.
type Notifier interface {
	Submitted(ctx context.Context, l models.Listing) (string, error)
	StatusChanged(ctx context.Context, messageID string, l models.Listing) error
}
