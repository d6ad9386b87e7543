package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
)

const multipartMemory = 8 << 20

func (s *Server) myListings(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Listings.PageByOwner(r.Context(), userID(r.Context()), r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	in, imgs, err := s.readListingRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.deps.Listings.Create(r.Context(), userID(r.Context()), in, imgs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) updateListing(w http.ResponseWriter, r *http.Request) {
	in, imgs, err := s.readListingRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.deps.Listings.Update(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), in, imgs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) deleteListing(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Listings.Delete(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setListingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.ListingStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.deps.Listings.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Active == nil {
		writeError(w, r, apperr.Invalid("active", "is required"))
		return
	}
	uid := chi.URLParam(r, "uid")
	if uid == userID(r.Context()) {
		writeError(w, r, apperr.Invalid("uid", "you cannot change your own account status"))
		return
	}
	if err := s.deps.Profiles.SetActive(r.Context(), uid, *req.Active); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("Account status changed", "uid", uid, "active", *req.Active, "by", userID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// readListingRequest accepts either a JSON listing or a multipart form with
// the listing JSON in the "listing" field and files under "images".
func (s *Server) readListingRequest(w http.ResponseWriter, r *http.Request) (models.ListingInput, []models.ImageUpload, error) {
	var in models.ListingInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return in, nil, decodeJSON(r, &in)
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes*int64(s.opts.MaxImages)+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, nil, apperr.Invalid("images", "upload is too large")
		}
		return in, nil, apperr.Invalid("body", "must be a valid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	if raw := strings.TrimSpace(r.FormValue("listing")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return in, nil, apperr.Invalid("listing", "must be a valid JSON object")
		}
	}

	var imgs []models.ImageUpload
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return in, nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			return in, nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		imgs = append(imgs, models.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        data,
		})
	}
	return in, imgs, nil
}
