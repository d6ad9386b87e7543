// Package listing implements the listing lifecycle: creation with image
// uploads, owner edits and deletes, moderation and paging.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/util"
	"github.com/pauljones0/bizdir/internal/validator"
)

const (
	// PageSize is the number of listings per owner page.
	PageSize = 10

	DefaultActiveLimit = 20
	MaxActiveLimit     = 50
)

type Limits struct {
	MaxImages     int
	MaxImageBytes int64
}

type Service struct {
	store     Store
	images    ImageStore
	notifier  Notifier
	validator *validator.Validator
	limits    Limits
	now       func() time.Time
}

func New(store Store, images ImageStore, n Notifier, v *validator.Validator, limits Limits) *Service {
	return &Service{
		store:     store,
		images:    images,
		notifier:  n,
		validator: v,
		limits:    limits,
		now:       time.Now,
	}
}

// Create validates the input and images, uploads the images concurrently and
// stores the listing as pending. Nothing touches the network until validation passes.
// Images that uploaded before a failure are not removed.
func (s *Service) Create(ctx context.Context, ownerID string, in models.ListingInput, imgs []models.ImageUpload) (*models.Listing, error) {
	now := s.now()
	l := models.Listing{
		OwnerID:   ownerID,
		Images:    []string{},
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ve := &apperr.ValidationError{Fields: map[string]string{}}
	applyInput(&l, in, ve, true)
	s.validateListing(l, ve)
	s.validateImages(0, imgs, ve)
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	if len(imgs) > 0 {
		urls, err := s.images.UploadAll(ctx, ownerID, imgs)
		if err != nil {
			return nil, fmt.Errorf("failed to upload images: %w", err)
		}
		l.Images = urls
	}

	id, err := s.store.CreateListing(ctx, l)
	if err != nil {
		return nil, err
	}
	l.ID = id
	slog.Info("Listing created", "id", id, "owner", ownerID, "images", len(l.Images))

	s.notifySubmitted(ctx, &l)
	return &l, nil
}

// Update applies an owner's edit. Non-empty input fields replace stored values,
// images in RemoveImages are dropped and new images are appended.
// A rejected listing goes back to pending when edited.
func (s *Service) Update(ctx context.Context, ownerID, id string, in models.ListingInput, imgs []models.ImageUpload) (*models.Listing, error) {
	l, err := s.ownedListing(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	ve := &apperr.ValidationError{Fields: map[string]string{}}
	applyInput(l, in, ve, false)

	var removed []string
	if len(in.RemoveImages) > 0 {
		drop := make(map[string]bool, len(in.RemoveImages))
		for _, u := range in.RemoveImages {
			drop[u] = true
		}
		kept := make([]string, 0, len(l.Images))
		for _, u := range l.Images {
			if drop[u] {
				removed = append(removed, u)
				continue
			}
			kept = append(kept, u)
		}
		l.Images = kept
	}

	s.validateListing(*l, ve)
	s.validateImages(len(l.Images), imgs, ve)
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	if len(imgs) > 0 {
		urls, err := s.images.UploadAll(ctx, ownerID, imgs)
		if err != nil {
			return nil, fmt.Errorf("failed to upload images: %w", err)
		}
		l.Images = append(l.Images, urls...)
	}

	if l.Status == models.StatusRejected {
		l.Status = models.StatusPending
	}
	l.UpdatedAt = s.now()
	if err := s.store.UpdateListing(ctx, *l); err != nil {
		return nil, err
	}

	for _, u := range removed {
		if err := s.images.DeleteByURL(ctx, u); err != nil {
			slog.Warn("Failed to delete removed listing image", "id", id, "url", u, "error", err)
		}
	}
	return l, nil
}

// Delete removes the listing's images by their stored URLs, then the document.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	l, err := s.ownedListing(ctx, ownerID, id)
	if err != nil {
		return err
	}
	for _, u := range l.Images {
		if err := s.images.DeleteByURL(ctx, u); err != nil {
			return fmt.Errorf("failed to delete image of listing %s: %w", id, err)
		}
	}
	if err := s.store.DeleteListing(ctx, id); err != nil {
		return err
	}
	slog.Info("Listing deleted", "id", id, "owner", ownerID)
	return nil
}

// Get returns any listing by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Listing, error) {
	return s.store.GetListing(ctx, id)
}

// GetPublic returns a listing only if it is active or owned by viewerID.
func (s *Service) GetPublic(ctx context.Context, id, viewerID string) (*models.Listing, error) {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != models.StatusActive && l.OwnerID != viewerID {
		return nil, models.ErrNotFound
	}
	return l, nil
}

// PageByOwner returns one page of the owner's listings, newest first, after
// the cursor returned by the previous page. HasMore is true whenever the page
// is full, so the page after a full last page is empty.
func (s *Service) PageByOwner(ctx context.Context, ownerID, cursor string) (*models.ListingPage, error) {
	listings, err := s.store.ListingsByOwner(ctx, ownerID, cursor, PageSize)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return nil, apperr.Invalid("cursor", "does not refer to one of your listings")
		}
		return nil, err
	}
	page := &models.ListingPage{
		Listings: listings,
		HasMore:  len(listings) == PageSize,
	}
	if len(listings) > 0 {
		page.Cursor = listings[len(listings)-1].ID
	}
	return page, nil
}

// ListActive returns the newest active listings, optionally in one category.
func (s *Service) ListActive(ctx context.Context, category string, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = DefaultActiveLimit
	}
	if limit > MaxActiveLimit {
		limit = MaxActiveLimit
	}
	return s.store.ActiveListings(ctx, strings.TrimSpace(category), limit)
}

// SetStatus moves a listing to a new moderation status and tells the moderators.
func (s *Service) SetStatus(ctx context.Context, id string, status models.ListingStatus) (*models.Listing, error) {
	switch status {
	case models.StatusPending, models.StatusActive, models.StatusRejected:
	default:
		return nil, apperr.Invalid("status", "must be pending, active or rejected")
	}

	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == status {
		return l, nil
	}

	now := s.now()
	if err := s.store.SetListingStatus(ctx, id, status, now); err != nil {
		return nil, err
	}
	previous := l.Status
	l.Status = status
	l.UpdatedAt = now
	slog.Info("Listing status changed", "id", id, "from", previous, "to", status)

	if err := s.notifier.StatusChanged(ctx, l.ModerationMessageID, *l); err != nil {
		slog.Warn("Failed to notify status change", "id", id, "error", err)
	}
	return l, nil
}

func (s *Service) ownedListing(ctx context.Context, ownerID, id string) (*models.Listing, error) {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, models.ErrForbidden
	}
	return l, nil
}

func (s *Service) notifySubmitted(ctx context.Context, l *models.Listing) {
	msgID, err := s.notifier.Submitted(ctx, *l)
	if err != nil {
		slog.Warn("Failed to notify moderators", "id", l.ID, "error", err)
		return
	}
	if msgID == "" {
		return
	}
	l.ModerationMessageID = msgID
	if err := s.store.SetModerationMessageID(ctx, l.ID, msgID); err != nil {
		slog.Warn("Failed to save moderation message ID", "id", l.ID, "error", err)
	}
}

func (s *Service) validateListing(l models.Listing, ve *apperr.ValidationError) {
	err := s.validator.ValidateStruct(l)
	if err == nil {
		return
	}
	fe, ok := apperr.AsValidation(err)
	if !ok {
		ve.Fields["listing"] = err.Error()
		return
	}
	for k, v := range fe.Fields {
		if _, exists := ve.Fields[k]; !exists {
			ve.Fields[k] = v
		}
	}
}

func (s *Service) validateImages(existing int, imgs []models.ImageUpload, ve *apperr.ValidationError) {
	if existing+len(imgs) > s.limits.MaxImages {
		ve.Fields["images"] = fmt.Sprintf("at most %d images are allowed", s.limits.MaxImages)
		return
	}
	for _, img := range imgs {
		if err := s.validator.ValidateImage(img, s.limits.MaxImageBytes); err != nil {
			if fe, ok := apperr.AsValidation(err); ok {
				for k, v := range fe.Fields {
					ve.Fields[k] = v
				}
			}
		}
	}
}

// applyInput copies normalized input onto l. With replaceAll every field is
// taken from in; otherwise only non-empty fields are.
func applyInput(l *models.Listing, in models.ListingInput, ve *apperr.ValidationError, replaceAll bool) {
	set := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if replaceAll || v != "" {
			*dst = v
		}
	}
	set(&l.Title, in.Title)
	set(&l.Description, in.Description)
	set(&l.Category, in.Category)
	set(&l.Subcategory, in.Subcategory)
	set(&l.Unit, in.Unit)
	set(&l.Address, in.Address)
	set(&l.City, in.City)
	set(&l.ContactEmail, strings.ToLower(in.ContactEmail))
	set(&l.ContactPhone, util.NormalizeBDPhone(in.ContactPhone))
	set(&l.WhatsApp, util.NormalizeBDPhone(in.WhatsApp))

	if replaceAll || in.Price != 0 {
		l.Price = in.Price
	}
	if replaceAll || in.Tags != nil {
		l.Tags = cleanTags(in.Tags)
	}

	if replaceAll || strings.TrimSpace(in.Website) != "" {
		website, err := util.NormalizeWebsiteURL(in.Website)
		if err != nil {
			ve.Fields["website"] = "must be a valid http or https URL"
		} else {
			l.Website = website
		}
	}
}

// cleanTags lower-cases, trims and de-duplicates tags, dropping empty ones.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
