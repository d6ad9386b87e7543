package httpapi

import (
	"context"

	"github.com/pauljones0/bizdir/internal/auth"
	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/profile"
)

// Identity signs users in against the authentication provider.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignInWithIdp(ctx context.Context, cred auth.FederatedCredential) (*auth.Session, error)
	SetDisplayName(ctx context.Context, idToken, displayName string) error
	SendPasswordReset(ctx context.Context, email string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
}

// TokenVerifier checks bearer ID tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type Profiles interface {
	Create(ctx context.Context, np profile.NewProfile) (*models.UserProfile, error)
	Ensure(ctx context.Context, np profile.NewProfile) (*models.UserProfile, error)
	Get(ctx context.Context, uid string) (*models.UserProfile, error)
	Update(ctx context.Context, uid string, u models.ProfileUpdate) (*models.UserProfile, error)
	SetActive(ctx context.Context, uid string, active bool) error
}

type Onboarding interface {
	Get(ctx context.Context, uid string) (*models.OnboardingDraft, error)
	Advance(ctx context.Context, uid string, in models.OnboardingDraft) (*models.OnboardingDraft, error)
	Back(ctx context.Context, uid string) (*models.OnboardingDraft, error)
	Complete(ctx context.Context, uid string, listing models.OnboardingListing) (*models.OnboardingDraft, *models.Listing, error)
}

type Listings interface {
	Create(ctx context.Context, ownerID string, in models.ListingInput, imgs []models.ImageUpload) (*models.Listing, error)
	Update(ctx context.Context, ownerID, id string, in models.ListingInput, imgs []models.ImageUpload) (*models.Listing, error)
	Delete(ctx context.Context, ownerID, id string) error
	GetPublic(ctx context.Context, id, viewerID string) (*models.Listing, error)
	PageByOwner(ctx context.Context, ownerID, cursor string) (*models.ListingPage, error)
	ListActive(ctx context.Context, category string, limit int) ([]models.Listing, error)
	SetStatus(ctx context.Context, id string, status models.ListingStatus) (*models.Listing, error)
}

type Tracker interface {
	Track(ctx context.Context, kind models.EventKind, listingID, ownerID string)
	Summary(ctx context.Context, ownerID, from, to string) (*models.AnalyticsSummary, error)
}

type Catalog interface {
	Categories(ctx context.Context) ([]models.CatalogCategory, error)
	Products(ctx context.Context, idOrSlug string) ([]models.CatalogProduct, error)
}
