package models

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller does not own the document it is acting on.
	ErrForbidden = errors.New("forbidden")

	// ErrAnalyticsExists is returned when creating a daily analytics record that another request already created.
	ErrAnalyticsExists = errors.New("analytics record already exists")

	// ErrProfileExists is returned when creating a profile for a uid that already has one.
	ErrProfileExists = errors.New("profile already exists")

	// ErrOnboardingCompleted is returned when the onboarding wizard is used after it was completed.
	ErrOnboardingCompleted = errors.New("onboarding already completed")

	// ErrInvalidCursor is returned when a pagination cursor does not resolve to a listing.
	ErrInvalidCursor = errors.New("invalid cursor")
)
