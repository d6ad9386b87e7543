package httpapi

import (
	"net/http"

	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/profile"
)

// me returns the caller's profile, creating it if the account was made
// outside this API.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	p, err := s.deps.Profiles.Ensure(r.Context(), profile.NewProfile{
		UID:         c.UID,
		Email:       c.Email,
		DisplayName: c.Name,
		PhotoURL:    c.Picture,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var u models.ProfileUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Profiles.Update(r.Context(), userID(r.Context()), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) onboarding(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Onboarding.Get(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) onboardingAdvance(w http.ResponseWriter, r *http.Request) {
	var in models.OnboardingDraft
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.deps.Onboarding.Advance(r.Context(), userID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) onboardingBack(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Onboarding.Back(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) onboardingComplete(w http.ResponseWriter, r *http.Request) {
	var in models.OnboardingListing
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, l, err := s.deps.Onboarding.Complete(r.Context(), userID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"onboarding": d, "listing": l})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.deps.Tracker.Summary(r.Context(), userID(r.Context()), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
