// Package analytics records per-owner daily view, click and lead counters.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 366
)

// Repository stores daily analytics records.
type Repository interface {
	GetDaily(ctx context.Context, ownerID, date string) (*models.DailyAnalytics, error)
	CreateDaily(ctx context.Context, rec models.DailyAnalytics) error
	IncrementDaily(ctx context.Context, ownerID, date string, kind models.EventKind, now time.Time) error
	ListDaily(ctx context.Context, ownerID, from, to string) ([]models.DailyAnalytics, error)
}

type Tracker struct {
	repo      Repository
	debouncer *Debouncer
	metrics   *Metrics
	now       func() time.Time
}

func NewTracker(repo Repository, debouncer *Debouncer, metrics *Metrics) *Tracker {
	return &Tracker{
		repo:      repo,
		debouncer: debouncer,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Track counts one event of kind for the listing's owner on today's (UTC) record.
// Repeats for the same kind and listing inside the debounce window are dropped.
// Failures are logged, never returned.
func (t *Tracker) Track(ctx context.Context, kind models.EventKind, listingID, ownerID string) {
	if !t.debouncer.Allow(string(kind) + ":" + listingID) {
		t.metrics.observe(string(kind), outcomeSuppressed)
		return
	}

	if err := t.record(ctx, kind, ownerID); err != nil {
		t.metrics.observe(string(kind), outcomeFailed)
		slog.Error("Failed to track analytics event", "kind", kind, "listing", listingID, "owner", ownerID, "error", err)
		return
	}
	t.metrics.observe(string(kind), outcomeRecorded)
}

func (t *Tracker) record(ctx context.Context, kind models.EventKind, ownerID string) error {
	now := t.now().UTC()
	date := now.Format(models.DateLayout)

	existing, err := t.repo.GetDaily(ctx, ownerID, date)
	if err != nil {
		return fmt.Errorf("read daily record: %w", err)
	}

	if existing == nil {
		err := t.repo.CreateDaily(ctx, models.NewDailyAnalytics(ownerID, date, kind, now))
		if err == nil {
			return nil
		}
		// Another request created the day's record first.
		if !errors.Is(err, models.ErrAnalyticsExists) {
			return fmt.Errorf("create daily record: %w", err)
		}
	}

	if err := t.repo.IncrementDaily(ctx, ownerID, date, kind, now); err != nil {
		return fmt.Errorf("increment daily record: %w", err)
	}
	return nil
}

// Summary returns the owner's daily records between from and to (inclusive,
// YYYY-MM-DD) with totals. Empty bounds default to the last 30 days.
func (t *Tracker) Summary(ctx context.Context, ownerID, from, to string) (*models.AnalyticsSummary, error) {
	today := t.now().UTC()
	if to == "" {
		to = today.Format(models.DateLayout)
	}
	toDate, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, apperr.Invalid("to", "must be a date in YYYY-MM-DD format")
	}
	if from == "" {
		from = toDate.AddDate(0, 0, -(defaultSummaryDays - 1)).Format(models.DateLayout)
	}
	fromDate, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, apperr.Invalid("from", "must be a date in YYYY-MM-DD format")
	}
	if fromDate.After(toDate) {
		return nil, apperr.Invalid("from", "must not be after to")
	}
	if toDate.Sub(fromDate) >= maxSummaryDays*24*time.Hour {
		return nil, apperr.Invalid("from", fmt.Sprintf("range must not exceed %d days", maxSummaryDays))
	}

	days, err := t.repo.ListDaily(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}

	summary := &models.AnalyticsSummary{From: from, To: to, Days: days}
	for _, d := range days {
		summary.Views += d.Views
		summary.Clicks += d.Clicks
		summary.Leads += d.Leads
		summary.Revenue += d.Revenue
	}
	return summary, nil
}
