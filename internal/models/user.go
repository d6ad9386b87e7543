package models

import "time"

// Role is the account type of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleService  Role = "service"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleBusiness, RoleService, RoleAdmin}

// NeedsOnboarding reports whether accounts of this role go through the onboarding wizard.
func (r Role) NeedsOnboarding() bool {
	return r == RoleBusiness || r == RoleService
}

// UserProfile is stored in the users collection, keyed by the auth uid.
type UserProfile struct {
	UID                 string           `firestore:"-" json:"uid"`
	Email               string           `firestore:"email" json:"email" validate:"required,email"`
	DisplayName         string           `firestore:"displayName" json:"displayName" validate:"required,max=80"`
	Phone               string           `firestore:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,bdphone"`
	Role                Role             `firestore:"role" json:"role" validate:"required,role"`
	PhotoURL            string           `firestore:"photoURL,omitempty" json:"photoURL,omitempty" validate:"omitempty,url"`
	IsActive            bool             `firestore:"isActive" json:"isActive"`
	OnboardingCompleted bool             `firestore:"onboardingCompleted" json:"onboardingCompleted"`
	Onboarding          *OnboardingDraft `firestore:"onboarding,omitempty" json:"onboarding,omitempty"`
	CreatedAt           time.Time        `firestore:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time        `firestore:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate holds the user-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=80"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,bdphone"`
	PhotoURL    *string `json:"photoURL,omitempty" validate:"omitempty,url"`
}

// OnboardingDraft is the persisted state of the onboarding wizard.
type OnboardingDraft struct {
	Step     string             `firestore:"step" json:"step"`
	Account  OnboardingAccount  `firestore:"account" json:"account"`
	Business OnboardingBusiness `firestore:"business" json:"business"`
	Contact  OnboardingContact  `firestore:"contact" json:"contact"`
	Listing  OnboardingListing  `firestore:"listing" json:"listing"`
	// ListingID is the first listing once created, so a retried completion reuses it.
	ListingID string `firestore:"listingId,omitempty" json:"listingId,omitempty"`
}

type OnboardingAccount struct {
	Role        Role   `firestore:"role" json:"role" validate:"required,oneof=business service"`
	DisplayName string `firestore:"displayName" json:"displayName" validate:"required,max=80"`
	Email       string `firestore:"email" json:"email" validate:"required,email"`
	Phone       string `firestore:"phone" json:"phone" validate:"omitempty,bdphone"`
}

type OnboardingBusiness struct {
	Name        string `firestore:"name" json:"name" validate:"required,max=120"`
	Category    string `firestore:"category" json:"category" validate:"required"`
	Subcategory string `firestore:"subcategory" json:"subcategory"`
	Description string `firestore:"description" json:"description" validate:"max=2000"`
}

type OnboardingContact struct {
	Phone    string `firestore:"phone" json:"phone" validate:"required,bdphone"`
	Email    string `firestore:"email" json:"email" validate:"omitempty,email"`
	WhatsApp string `firestore:"whatsapp" json:"whatsapp" validate:"omitempty,bdphone"`
	Website  string `firestore:"website" json:"website" validate:"omitempty,url"`
	Address  string `firestore:"address" json:"address" validate:"max=200"`
	City     string `firestore:"city" json:"city" validate:"required"`
}

// OnboardingListing seeds the account's first listing.
type OnboardingListing struct {
	Title    string  `firestore:"title" json:"title" validate:"required,max=120"`
	Category string  `firestore:"category" json:"category" validate:"required"`
	Price    float64 `firestore:"price" json:"price" validate:"gte=0"`
	Unit     string  `firestore:"unit" json:"unit"`
}
