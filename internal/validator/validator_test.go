package validator

import (
	"bytes"
	"testing"
	"time"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	valid := models.Listing{
		OwnerID:     "owner-1",
		Title:       "Dhaka Bakery",
		Description: "Fresh bread every morning",
		Category:    "food",
		Price:       120,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}

	tests := []struct {
		name      string
		mutate    func(l *models.Listing)
		wantErr   bool
		wantField string
	}{
		{
			name:    "Valid Listing",
			mutate:  func(l *models.Listing) {},
			wantErr: false,
		},
		{
			name:      "Missing Title",
			mutate:    func(l *models.Listing) { l.Title = "" },
			wantErr:   true,
			wantField: "title",
		},
		{
			name:      "Negative Price",
			mutate:    func(l *models.Listing) { l.Price = -1 },
			wantErr:   true,
			wantField: "price",
		},
		{
			name:      "Unknown Status",
			mutate:    func(l *models.Listing) { l.Status = "archived" },
			wantErr:   true,
			wantField: "status",
		},
		{
			name:      "Unnormalized Phone",
			mutate:    func(l *models.Listing) { l.ContactPhone = "01712345678" },
			wantErr:   true,
			wantField: "contactPhone",
		},
		{
			name:    "Normalized Phone",
			mutate:  func(l *models.Listing) { l.ContactPhone = "+8801712345678" },
			wantErr: false,
		},
		{
			name:      "Invalid Website",
			mutate:    func(l *models.Listing) { l.Website = "not a url" },
			wantErr:   true,
			wantField: "website",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid
			tt.mutate(&l)
			err := v.ValidateStruct(l)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantField == "" {
				return
			}
			ve, ok := apperr.AsValidation(err)
			if !ok {
				t.Fatalf("expected *apperr.ValidationError, got %T", err)
			}
			if _, ok := ve.Fields[tt.wantField]; !ok {
				t.Errorf("expected field %q in %v", tt.wantField, ve.Fields)
			}
		})
	}
}

func TestValidator_Role(t *testing.T) {
	v := New()
	p := models.UserProfile{Email: "a@b.com", DisplayName: "A", Role: "superuser"}
	if err := v.ValidateStruct(p); err == nil {
		t.Error("expected unknown role to fail validation")
	}
	p.Role = models.RoleBusiness
	if err := v.ValidateStruct(p); err != nil {
		t.Errorf("expected business role to pass, got %v", err)
	}
}

func TestValidator_ValidateImage(t *testing.T) {
	v := New()
	png := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)

	tests := []struct {
		name    string
		img     models.ImageUpload
		wantErr bool
	}{
		{
			name:    "Valid PNG",
			img:     models.ImageUpload{Filename: "a.png", ContentType: "image/png", Size: int64(len(png)), Data: png},
			wantErr: false,
		},
		{
			name:    "Declared type not allowed",
			img:     models.ImageUpload{Filename: "a.pdf", ContentType: "application/pdf", Size: int64(len(png)), Data: png},
			wantErr: true,
		},
		{
			name:    "Content does not match an image",
			img:     models.ImageUpload{Filename: "a.png", ContentType: "image/png", Size: 11, Data: []byte("hello world")},
			wantErr: true,
		},
		{
			name:    "Too large",
			img:     models.ImageUpload{Filename: "a.png", ContentType: "image/png", Size: 2048, Data: png},
			wantErr: true,
		},
		{
			name:    "Empty",
			img:     models.ImageUpload{Filename: "a.png", ContentType: "image/png"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateImage(tt.img, 1024); (err != nil) != tt.wantErr {
				t.Errorf("ValidateImage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
