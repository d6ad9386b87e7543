package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/auth"
	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/profile"
)

type signUpRequest struct {
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required"`
	DisplayName string      `json:"displayName" validate:"max=80"`
	Role        models.Role `json:"role" validate:"omitempty,oneof=customer business service"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type federatedRequest struct {
	auth.FederatedCredential
	Role models.Role `json:"role"`
}

type sessionResponse struct {
	Session *auth.Session       `json:"session"`
	Profile *models.UserProfile `json:"profile,omitempty"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := s.deps.Validator.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.CheckPasswordPolicy(req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := s.deps.Identity.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.DisplayName != "" {
		if err := s.deps.Identity.SetDisplayName(r.Context(), session.IDToken, req.DisplayName); err != nil {
			slog.Warn("Failed to set display name", "uid", session.UID, "error", err)
		} else {
			session.DisplayName = req.DisplayName
		}
	}

	p, err := s.deps.Profiles.Create(r.Context(), profile.NewProfile{
		UID:         session.UID,
		Email:       session.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("User signed up", "uid", session.UID, "role", p.Role)
	writeJSON(w, http.StatusCreated, sessionResponse{Session: session, Profile: p})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.deps.Validator.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := s.deps.Identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Profiles.Ensure(r.Context(), profile.NewProfile{
		UID:         session.UID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.IsActive {
		writeError(w, r, errAccountDisabled)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, Profile: p})
}

func (s *Server) federated(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Validator.ValidateStruct(req.FederatedCredential); err != nil {
		writeError(w, r, err)
		return
	}
	switch req.Role {
	case "", models.RoleCustomer, models.RoleBusiness, models.RoleService:
	default:
		writeError(w, r, apperr.Invalid("role", "must be one of: customer, business, service"))
		return
	}
	if req.IDToken == "" && req.AccessToken == "" {
		writeError(w, r, apperr.Invalid("idToken", "an ID token or access token is required"))
		return
	}

	session, err := s.deps.Identity.SignInWithIdp(r.Context(), req.FederatedCredential)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Profiles.Ensure(r.Context(), profile.NewProfile{
		UID:         session.UID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
		PhotoURL:    session.PhotoURL,
		Role:        req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.IsActive {
		writeError(w, r, errAccountDisabled)
		return
	}
	status := http.StatusOK
	if session.IsNewUser {
		status = http.StatusCreated
	}
	writeJSON(w, status, sessionResponse{Session: session, Profile: p})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Validator.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.deps.Identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Profiles.Get(r.Context(), session.UID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	if err == nil && !p.IsActive {
		writeError(w, r, errAccountDisabled)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

func (s *Server) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.deps.Validator.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Identity.SendPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) passwordStrength(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auth.EvaluatePassword(req.Password))
}
