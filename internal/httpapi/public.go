package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/models"
)

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) products(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Catalog.Products(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, apperr.Invalid("q", "is required"))
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := s.deps.Search.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "listings": results})
}

func (s *Server) activeListings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	listings, err := s.deps.Listings.ListActive(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// publicListing returns an active listing, or one of the caller's own, and
// counts a view for anyone but the owner.
func (s *Server) publicListing(w http.ResponseWriter, r *http.Request) {
	viewer := userID(r.Context())
	l, err := s.deps.Listings.GetPublic(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if l.OwnerID != viewer {
		s.deps.Tracker.Track(r.Context(), models.EventView, l.ID, l.OwnerID)
	}
	writeJSON(w, http.StatusOK, l)
}

// trackEvent counts a click or lead on a listing. The event kind is the last path segment.
func (s *Server) trackEvent(w http.ResponseWriter, r *http.Request) {
	segment := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	kind, err := models.ParseEventKind(segment)
	if err != nil {
		writeError(w, r, apperr.Invalid("event", err.Error()))
		return
	}
	viewer := userID(r.Context())
	l, err := s.deps.Listings.GetPublic(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if l.OwnerID != viewer {
		s.deps.Tracker.Track(r.Context(), kind, l.ID, l.OwnerID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(key, "must be a positive whole number")
	}
	return n, nil
}
