package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/bizdir/internal/models"
)

// CreateProfile stores a new profile. Returns models.ErrProfileExists if the uid already has one.
func (c *Client) CreateProfile(ctx context.Context, p models.UserProfile) error {
	_, err := c.client.Collection(usersCollection).Doc(p.UID).Create(ctx, p)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ErrProfileExists
		}
		return fmt.Errorf("failed to create profile %s: %w", p.UID, err)
	}
	return nil
}

// GetProfile retrieves a profile by uid.
func (c *Client) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := getDoc(ctx, c.client.Collection(usersCollection).Doc(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", uid, err)
	}
	var p models.UserProfile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile data: %w", err)
	}
	p.UID = doc.Ref.ID
	return &p, nil
}

// UpdateProfile applies the non-nil fields of u.
func (c *Client) UpdateProfile(ctx context.Context, uid string, u models.ProfileUpdate, now time.Time) error {
	updates := profileUpdates(u, now)
	_, err := c.client.Collection(usersCollection).Doc(uid).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to update profile %s: %w", uid, err)
	}
	return nil
}

func profileUpdates(u models.ProfileUpdate, now time.Time) []firestore.Update {
	updates := []firestore.Update{{Path: "updatedAt", Value: now}}
	if u.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *u.DisplayName})
	}
	if u.Phone != nil {
		updates = append(updates, firestore.Update{Path: "phone", Value: *u.Phone})
	}
	if u.PhotoURL != nil {
		updates = append(updates, firestore.Update{Path: "photoURL", Value: *u.PhotoURL})
	}
	return updates
}

// SetProfileActive toggles the activity flag.
func (c *Client) SetProfileActive(ctx context.Context, uid string, active bool, now time.Time) error {
	_, err := c.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: active},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to set active flag for %s: %w", uid, err)
	}
	return nil
}

// SaveOnboarding stores the wizard draft on the profile.
func (c *Client) SaveOnboarding(ctx context.Context, uid string, draft models.OnboardingDraft, now time.Time) error {
	_, err := c.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "onboarding", Value: draft},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to save onboarding for %s: %w", uid, err)
	}
	return nil
}

// CompleteOnboarding marks the profile onboarded and copies the wizard's account fields onto it.
func (c *Client) CompleteOnboarding(ctx context.Context, uid string, draft models.OnboardingDraft, now time.Time) error {
	updates := []firestore.Update{
		{Path: "onboardingCompleted", Value: true},
		{Path: "onboarding", Value: draft},
		{Path: "role", Value: draft.Account.Role},
		{Path: "updatedAt", Value: now},
	}
	if draft.Account.DisplayName != "" {
		updates = append(updates, firestore.Update{Path: "displayName", Value: draft.Account.DisplayName})
	}
	if draft.Account.Phone != "" {
		updates = append(updates, firestore.Update{Path: "phone", Value: draft.Account.Phone})
	}
	_, err := c.client.Collection(usersCollection).Doc(uid).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to complete onboarding for %s: %w", uid, err)
	}
	return nil
}
