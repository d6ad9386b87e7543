package models

import "time"

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusActive   ListingStatus = "active"
	StatusRejected ListingStatus = "rejected"
)

// Rating is the aggregate of the reviews a listing has received.
type Rating struct {
	Average float64 `firestore:"average" json:"average"`
	Count   int     `firestore:"count" json:"count"`
}

// Listing is a business, service or product entry owned by a user.
type Listing struct {
	ID           string        `firestore:"-" json:"id"`
	OwnerID      string        `firestore:"ownerId" json:"ownerId" validate:"required"`
	Title        string        `firestore:"title" json:"title" validate:"required,max=120"`
	Description  string        `firestore:"description" json:"description" validate:"required,max=5000"`
	Category     string        `firestore:"category" json:"category" validate:"required"`
	Subcategory  string        `firestore:"subcategory,omitempty" json:"subcategory,omitempty"`
	Price        float64       `firestore:"price" json:"price" validate:"gte=0"`
	Unit         string        `firestore:"unit,omitempty" json:"unit,omitempty"`
	ContactPhone string        `firestore:"contactPhone,omitempty" json:"contactPhone,omitempty" validate:"omitempty,bdphone"`
	ContactEmail string        `firestore:"contactEmail,omitempty" json:"contactEmail,omitempty" validate:"omitempty,email"`
	WhatsApp     string        `firestore:"whatsapp,omitempty" json:"whatsapp,omitempty" validate:"omitempty,bdphone"`
	Website      string        `firestore:"website,omitempty" json:"website,omitempty" validate:"omitempty,url"`
	Address      string        `firestore:"address,omitempty" json:"address,omitempty"`
	City         string        `firestore:"city,omitempty" json:"city,omitempty"`
	Images       []string      `firestore:"images" json:"images"`
	Tags         []string      `firestore:"tags" json:"tags" validate:"max=20,dive,max=40"`
	Status       ListingStatus `firestore:"status" json:"status" validate:"required,listingstatus"`
	Views        int           `firestore:"views" json:"views" validate:"gte=0"`
	Rating       Rating        `firestore:"rating" json:"rating"`
	// ModerationMessageID is the moderators' chat message for this listing, edited on status changes.
	ModerationMessageID string    `firestore:"moderationMessageId,omitempty" json:"-"`
	CreatedAt           time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// ListingInput is what an owner submits when creating or editing a listing.
// On update, zero-valued fields keep the stored value except where noted.
type ListingInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	Price        float64  `json:"price"`
	Unit         string   `json:"unit"`
	ContactPhone string   `json:"contactPhone"`
	ContactEmail string   `json:"contactEmail"`
	WhatsApp     string   `json:"whatsapp"`
	Website      string   `json:"website"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Tags         []string `json:"tags"`
	// RemoveImages lists stored image URLs to delete on update.
	RemoveImages []string `json:"removeImages,omitempty"`
}

// ImageUpload is an image file received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// ListingPage is one page of an owner's listings.
type ListingPage struct {
	Listings []Listing `json:"listings"`
	// Cursor is the ID of the last listing on the page, empty if the page is empty.
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"hasMore"`
}
