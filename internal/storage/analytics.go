package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/bizdir/internal/models"
)

func (c *Client) dailyRef(ownerID, date string) *firestore.DocumentRef {
	return c.client.Collection(analyticsCollection).Doc(ownerID).Collection(analyticsDailyCollection).Doc(date)
}

// GetDaily returns the owner's record for date, or nil if none exists yet.
func (c *Client) GetDaily(ctx context.Context, ownerID, date string) (*models.DailyAnalytics, error) {
	doc, err := c.dailyRef(ownerID, date).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analytics %s/%s: %w", ownerID, date, err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	var rec models.DailyAnalytics
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analytics data: %w", err)
	}
	return &rec, nil
}

// CreateDaily creates the day's record. Returns models.ErrAnalyticsExists if it already exists.
func (c *Client) CreateDaily(ctx context.Context, rec models.DailyAnalytics) error {
	_, err := c.dailyRef(rec.OwnerID, rec.Date).Create(ctx, rec)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ErrAnalyticsExists
		}
		return fmt.Errorf("failed to create analytics %s/%s: %w", rec.OwnerID, rec.Date, err)
	}
	return nil
}

// IncrementDaily atomically adds one to the counter for kind.
func (c *Client) IncrementDaily(ctx context.Context, ownerID, date string, kind models.EventKind, now time.Time) error {
	_, err := c.dailyRef(ownerID, date).Update(ctx, []firestore.Update{
		{Path: string(kind), Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to increment %s for %s/%s: %w", kind, ownerID, date, err)
	}
	return nil
}

// ListDaily returns the owner's records with from <= date <= to, oldest first.
func (c *Client) ListDaily(ctx context.Context, ownerID, from, to string) ([]models.DailyAnalytics, error) {
	iter := c.client.Collection(analyticsCollection).Doc(ownerID).Collection(analyticsDailyCollection).
		Where("date", ">=", from).
		Where("date", "<=", to).
		OrderBy("date", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	days := []models.DailyAnalytics{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate analytics: %w", err)
		}
		var rec models.DailyAnalytics
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analytics data: %w", err)
		}
		days = append(days, rec)
	}
	return days, nil
}
