// Package search ranks active listings against a free-text query.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/pauljones0/bizdir/internal/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// scanLimit bounds how many active listings one query scores.
	scanLimit = 500

	scoreTitle       = 10
	scoreTitlePrefix = 5
	scoreTag         = 6
	scoreCategory    = 4
	scoreDescription = 2
	scoreCity        = 1
)

// Searcher finds listings matching a query, best match first.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.Listing, error)
}

// ListingSource supplies the active listings to score.
type ListingSource interface {
	ActiveListings(ctx context.Context, category string, limit int) ([]models.Listing, error)
}

// Local scores listings in process. It is used with the Firestore backend,
// which has no substring queries.
type Local struct {
	source ListingSource
}

func NewLocal(source ListingSource) *Local {
	return &Local{source: source}
}

func (l *Local) Search(ctx context.Context, query string, limit int) ([]models.Listing, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return []models.Listing{}, nil
	}
	listings, err := l.source.ActiveListings(ctx, "", scanLimit)
	if err != nil {
		return nil, err
	}
	return Rank(listings, terms, ClampLimit(limit)), nil
}

// ClampLimit applies the default and maximum result counts.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Terms lower-cases the query and splits it on whitespace, dropping duplicates.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// Score sums the weight of every field each term occurs in.
func Score(l models.Listing, terms []string) int {
	title := strings.ToLower(l.Title)
	description := strings.ToLower(l.Description)
	category := strings.ToLower(l.Category)
	subcategory := strings.ToLower(l.Subcategory)
	city := strings.ToLower(l.City)

	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += scoreTitle
			if strings.HasPrefix(title, term) {
				score += scoreTitlePrefix
			}
		}
		for _, tag := range l.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				score += scoreTag
				break
			}
		}
		if strings.Contains(category, term) || strings.Contains(subcategory, term) {
			score += scoreCategory
		}
		if strings.Contains(description, term) {
			score += scoreDescription
		}
		if strings.Contains(city, term) {
			score += scoreCity
		}
	}
	return score
}

// Rank drops non-matching listings and orders the rest by score, then newest first.
func Rank(listings []models.Listing, terms []string, limit int) []models.Listing {
	type scored struct {
		listing models.Listing
		score   int
	}
	var matches []scored
	for _, l := range listings {
		if s := Score(l, terms); s > 0 {
			matches = append(matches, scored{l, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].listing.CreatedAt.After(matches[j].listing.CreatedAt)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]models.Listing, len(matches))
	for i, m := range matches {
		out[i] = m.listing
	}
	return out
}
