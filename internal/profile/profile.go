// Package profile manages user profile documents.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/util"
	"github.com/pauljones0/bizdir/internal/validator"
)

// Store abstracts the storage layer for profiles.
type Store interface {
	CreateProfile(ctx context.Context, p models.UserProfile) error
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, u models.ProfileUpdate, now time.Time) error
	SetProfileActive(ctx context.Context, uid string, active bool, now time.Time) error
}

type Service struct {
	store     Store
	validator *validator.Validator
	now       func() time.Time
}

func New(store Store, v *validator.Validator) *Service {
	return &Service{store: store, validator: v, now: time.Now}
}

// NewProfile is what sign-up knows about a user.
type NewProfile struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Role        models.Role
}

// Create stores the profile of a newly signed-up user. Business and service
// accounts start with an onboarding draft; customers are onboarded at once.
func (s *Service) Create(ctx context.Context, np NewProfile) (*models.UserProfile, error) {
	now := s.now()
	role := np.Role
	if role == "" {
		role = models.RoleCustomer
	}
	displayName := strings.TrimSpace(np.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(np.Email, "@", 2)[0]
	}

	p := models.UserProfile{
		UID:                 np.UID,
		Email:               strings.ToLower(strings.TrimSpace(np.Email)),
		DisplayName:         displayName,
		Role:                role,
		PhotoURL:            np.PhotoURL,
		IsActive:            true,
		OnboardingCompleted: !role.NeedsOnboarding(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if role == models.RoleAdmin {
		return nil, apperr.Invalid("role", "cannot sign up as admin")
	}
	if err := s.validator.ValidateStruct(p); err != nil {
		return nil, err
	}
	if role.NeedsOnboarding() {
		p.Onboarding = &models.OnboardingDraft{
			Step: "account",
			Account: models.OnboardingAccount{
				Role:        role,
				DisplayName: p.DisplayName,
				Email:       p.Email,
			},
		}
	}

	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Ensure returns the user's profile, creating it on first sign-in.
func (s *Service) Ensure(ctx context.Context, np NewProfile) (*models.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, np.UID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	p, err = s.Create(ctx, np)
	if errors.Is(err, models.ErrProfileExists) {
		// Created by a concurrent sign-in.
		return s.store.GetProfile(ctx, np.UID)
	}
	return p, err
}

func (s *Service) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	return s.store.GetProfile(ctx, uid)
}

// Update applies a profile edit. Phone numbers are stored in +880 form.
func (s *Service) Update(ctx context.Context, uid string, u models.ProfileUpdate) (*models.UserProfile, error) {
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		u.DisplayName = &name
	}
	if u.Phone != nil {
		phone := util.NormalizeBDPhone(*u.Phone)
		u.Phone = &phone
	}
	if u.PhotoURL != nil {
		photo := strings.TrimSpace(*u.PhotoURL)
		u.PhotoURL = &photo
	}
	if err := s.validator.ValidateStruct(u); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProfile(ctx, uid, u, s.now()); err != nil {
		return nil, err
	}
	return s.store.GetProfile(ctx, uid)
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, uid string, active bool) error {
	return s.store.SetProfileActive(ctx, uid, active, s.now())
}
