// Package onboarding runs the linear setup wizard business and service
// accounts complete before reaching their dashboard.
package onboarding

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
	StepAccount  = "account"
	StepBusiness = "business"
	StepContact  = "contact"
	StepReview   = "review"
	StepDone     = "done"
)

// Steps is the wizard order.
var Steps = []string{StepAccount, StepBusiness, StepContact, StepReview}

func stepIndex(step string) int {
	for i, s := range Steps {
		if s == step {
			return i
		}
	}
	return -1
}

// Store persists the draft on the user's profile.
type Store interface {
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	SaveOnboarding(ctx context.Context, uid string, draft models.OnboardingDraft, now time.Time) error
	CompleteOnboarding(ctx context.Context, uid string, draft models.OnboardingDraft, now time.Time) error
}

// ListingCreator creates the first listing when the wizard completes.
type ListingCreator interface {
	Create(ctx context.Context, ownerID string, in models.ListingInput, imgs []models.ImageUpload) (*models.Listing, error)
	Get(ctx context.Context, id string) (*models.Listing, error)
}

type Wizard struct {
	store     Store
	listings  ListingCreator
	validator *validator.Validator
	now       func() time.Time
}

func New(store Store, listings ListingCreator, v *validator.Validator) *Wizard {
	return &Wizard{store: store, listings: listings, validator: v, now: time.Now}
}

// Get returns the user's draft, seeding a new one from the profile.
func (w *Wizard) Get(ctx context.Context, uid string) (*models.OnboardingDraft, error) {
	p, err := w.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	return draftOf(p), nil
}

func draftOf(p *models.UserProfile) *models.OnboardingDraft {
	if p.OnboardingCompleted {
		if p.Onboarding != nil {
			d := *p.Onboarding
			d.Step = StepDone
			return &d
		}
		return &models.OnboardingDraft{Step: StepDone}
	}
	if p.Onboarding != nil && stepIndex(p.Onboarding.Step) >= 0 {
		d := *p.Onboarding
		return &d
	}
	d := &models.OnboardingDraft{
		Step: StepAccount,
		Account: models.OnboardingAccount{
			Role:        p.Role,
			DisplayName: p.DisplayName,
			Email:       p.Email,
			Phone:       p.Phone,
		},
	}
	if p.Onboarding != nil {
		d.Business = p.Onboarding.Business
		d.Contact = p.Onboarding.Contact
		d.Listing = p.Onboarding.Listing
		d.ListingID = p.Onboarding.ListingID
	}
	return d
}

// Advance validates the submitted section for the current step, fills derived
// defaults into later steps and moves one step forward. in.Step must name the
// current step; submitting a later step is refused.
func (w *Wizard) Advance(ctx context.Context, uid string, in models.OnboardingDraft) (*models.OnboardingDraft, error) {
	p, err := w.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p.OnboardingCompleted {
		return nil, models.ErrOnboardingCompleted
	}
	d := draftOf(p)

	if err := checkStep(d.Step, in.Step); err != nil {
		return nil, err
	}
	if d.Step == StepReview {
		return nil, apperr.Invalid("step", "review is the last step, complete the wizard instead")
	}

	switch d.Step {
	case StepAccount:
		d.Account = normalizeAccount(in.Account)
		err = w.validateSection(StepAccount, d.Account)
	case StepBusiness:
		d.Business = normalizeBusiness(in.Business)
		err = w.validateSection(StepBusiness, d.Business)
	case StepContact:
		d.Contact, err = normalizeContact(in.Contact)
		if err == nil {
			err = w.validateSection(StepContact, d.Contact)
		}
	}
	if err != nil {
		return nil, err
	}

	PropagateDefaults(d, d.Step)
	d.Step = Steps[stepIndex(d.Step)+1]

	if err := w.store.SaveOnboarding(ctx, uid, *d, w.now()); err != nil {
		return nil, fmt.Errorf("failed to save onboarding: %w", err)
	}
	return d, nil
}

// Back moves one step back without validating anything.
func (w *Wizard) Back(ctx context.Context, uid string) (*models.OnboardingDraft, error) {
	p, err := w.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p.OnboardingCompleted {
		return nil, models.ErrOnboardingCompleted
	}
	d := draftOf(p)
	i := stepIndex(d.Step)
	if i == 0 {
		return nil, apperr.Invalid("step", "already at the first step")
	}
	d.Step = Steps[i-1]

	if err := w.store.SaveOnboarding(ctx, uid, *d, w.now()); err != nil {
		return nil, fmt.Errorf("failed to save onboarding: %w", err)
	}
	return d, nil
}

// Complete finishes the wizard from the review step. Non-empty fields of
// listing override the derived first-listing values. The first listing is
// created (pending) and recorded on the draft before the profile is marked
// onboarded, so a failure leaves the wizard on the review step and a retry
// reuses the listing instead of creating another.
func (w *Wizard) Complete(ctx context.Context, uid string, listing models.OnboardingListing) (*models.OnboardingDraft, *models.Listing, error) {
	p, err := w.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	if p.OnboardingCompleted {
		return nil, nil, models.ErrOnboardingCompleted
	}
	d := draftOf(p)
	if d.Step != StepReview {
		return nil, nil, apperr.Invalid("step", "complete the "+d.Step+" step first")
	}

	if t := strings.TrimSpace(listing.Title); t != "" {
		d.Listing.Title = t
	}
	if c := strings.TrimSpace(listing.Category); c != "" {
		d.Listing.Category = c
	}
	if listing.Price > 0 {
		d.Listing.Price = listing.Price
	}
	if u := strings.TrimSpace(listing.Unit); u != "" {
		d.Listing.Unit = u
	}
	for _, step := range Steps {
		PropagateDefaults(d, step)
	}

	ve := &apperr.ValidationError{Fields: map[string]string{}}
	for _, section := range []struct {
		name string
		v    any
	}{
		{StepAccount, d.Account},
		{StepBusiness, d.Business},
		{StepContact, d.Contact},
		{"listing", d.Listing},
	} {
		if err := w.validateSection(section.name, section.v); err != nil {
			fe, ok := apperr.AsValidation(err)
			if !ok {
				return nil, nil, err
			}
			for k, v := range fe.Fields {
				ve.Fields[k] = v
			}
		}
	}
	if len(ve.Fields) > 0 {
		return nil, nil, ve
	}

	first, err := w.firstListing(ctx, uid, d)
	if err != nil {
		return nil, nil, err
	}

	d.Step = StepDone
	if err := w.store.CompleteOnboarding(ctx, uid, *d, w.now()); err != nil {
		return nil, nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	slog.Info("Onboarding completed", "uid", uid, "role", d.Account.Role, "listing", first.ID)
	return d, first, nil
}

// firstListing returns the listing an earlier attempt recorded on d, or
// creates it and records its ID on the stored draft.
func (w *Wizard) firstListing(ctx context.Context, uid string, d *models.OnboardingDraft) (*models.Listing, error) {
	if d.ListingID != "" {
		l, err := w.listings.Get(ctx, d.ListingID)
		switch {
		case err == nil && l.OwnerID == uid:
			return l, nil
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("failed to load first listing: %w", err)
		}
	}

	l, err := w.listings.Create(ctx, uid, firstListingInput(*d), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create first listing: %w", err)
	}
	d.ListingID = l.ID
	if err := w.store.SaveOnboarding(ctx, uid, *d, w.now()); err != nil {
		slog.Warn("First listing created but not recorded on draft", "uid", uid, "listing", l.ID, "error", err)
		return nil, fmt.Errorf("failed to save onboarding: %w", err)
	}
	return l, nil
}

// PropagateDefaults copies what the user entered on step into the empty
// fields of later sections. Filled fields are never overwritten.
func PropagateDefaults(d *models.OnboardingDraft, step string) {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	switch step {
	case StepAccount:
		fill(&d.Business.Name, d.Account.DisplayName)
		fill(&d.Contact.Email, d.Account.Email)
		fill(&d.Contact.Phone, d.Account.Phone)
	case StepBusiness:
		fill(&d.Listing.Title, d.Business.Name)
		fill(&d.Listing.Category, d.Business.Category)
	case StepContact:
		fill(&d.Contact.WhatsApp, d.Contact.Phone)
	}
}

func checkStep(current, submitted string) error {
	if submitted == current {
		return nil
	}
	si := stepIndex(submitted)
	switch {
	case si < 0:
		return apperr.Invalid("step", fmt.Sprintf("unknown step %q", submitted))
	case si > stepIndex(current):
		return apperr.Invalid("step", "complete the "+current+" step first")
	}
	return apperr.Invalid("step", "the wizard is already on the "+current+" step")
}

func (w *Wizard) validateSection(name string, section any) error {
	err := w.validator.ValidateStruct(section)
	if err == nil {
		return nil
	}
	fe, ok := apperr.AsValidation(err)
	if !ok {
		return err
	}
	prefixed := &apperr.ValidationError{Fields: make(map[string]string, len(fe.Fields))}
	for k, v := range fe.Fields {
		prefixed.Fields[name+"."+k] = v
	}
	return prefixed
}

func normalizeAccount(a models.OnboardingAccount) models.OnboardingAccount {
	a.DisplayName = strings.TrimSpace(a.DisplayName)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.Phone != "" {
		a.Phone = util.NormalizeBDPhone(a.Phone)
	}
	return a
}

func normalizeBusiness(b models.OnboardingBusiness) models.OnboardingBusiness {
	b.Name = strings.TrimSpace(b.Name)
	b.Category = strings.TrimSpace(b.Category)
	b.Subcategory = strings.TrimSpace(b.Subcategory)
	b.Description = strings.TrimSpace(b.Description)
	return b
}

func normalizeContact(c models.OnboardingContact) (models.OnboardingContact, error) {
	if c.Phone != "" {
		c.Phone = util.NormalizeBDPhone(c.Phone)
	}
	if c.WhatsApp != "" {
		c.WhatsApp = util.NormalizeBDPhone(c.WhatsApp)
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	website, err := util.NormalizeWebsiteURL(c.Website)
	if err != nil {
		return c, apperr.Invalid("contact.website", "must be a valid http or https URL")
	}
	c.Website = website
	return c, nil
}

func firstListingInput(d models.OnboardingDraft) models.ListingInput {
	description := d.Business.Description
	if description == "" {
		description = d.Business.Name
	}
	return models.ListingInput{
		Title:        d.Listing.Title,
		Description:  description,
		Category:     d.Listing.Category,
		Subcategory:  d.Business.Subcategory,
		Price:        d.Listing.Price,
		Unit:         d.Listing.Unit,
		ContactPhone: d.Contact.Phone,
		ContactEmail: d.Contact.Email,
		WhatsApp:     d.Contact.WhatsApp,
		Website:      d.Contact.Website,
		Address:      d.Contact.Address,
		City:         d.Contact.City,
	}
}
