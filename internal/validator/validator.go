package validator

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/util"
)

// AllowedImageTypes are the content types accepted for listing images.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Validator is a wrapper around the validator library.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the directory's custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("bdphone", func(fl validator.FieldLevel) bool {
		return util.IsValidBDPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("listingstatus", func(fl validator.FieldLevel) bool {
		switch models.ListingStatus(fl.Field().String()) {
		case models.StatusPending, models.StatusActive, models.StatusRejected:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		for _, r := range models.Roles {
			if string(r) == fl.Field().String() {
				return true
			}
		}
		return false
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags. Field failures are
// returned as an *apperr.ValidationError keyed by JSON field name.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	ve := &apperr.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fieldPath(fe)] = describe(fe)
	}
	return ve
}

// ValidateImage checks an upload's declared and sniffed content type and its size.
func (v *Validator) ValidateImage(img models.ImageUpload, maxBytes int64) error {
	field := "images"
	if img.Filename != "" {
		field = "images[" + img.Filename + "]"
	}
	if img.Size <= 0 || len(img.Data) == 0 {
		return apperr.Invalid(field, "file is empty")
	}
	if img.Size > maxBytes || int64(len(img.Data)) > maxBytes {
		return apperr.Invalid(field, fmt.Sprintf("file is larger than %d MB", maxBytes>>20))
	}
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(img.ContentType, ";", 2)[0]))
	sniffed := http.DetectContentType(img.Data)
	if !AllowedImageTypes[declared] || !AllowedImageTypes[sniffed] {
		return apperr.Invalid(field, "only JPEG, PNG, WebP and GIF images are allowed")
	}
	return nil
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "bdphone":
		return "must be a valid Bangladeshi mobile number"
	case "listingstatus":
		return "must be pending, active or rejected"
	case "role":
		return "must be customer, business, service or admin"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be " + fe.Param() + " or more"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "min":
		return "must be at least " + fe.Param() + " long"
	}
	return "is invalid (" + fe.Tag() + ")"
}
