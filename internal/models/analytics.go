package models

import (
	"fmt"
	"time"
)

// EventKind is a trackable analytics event.
type EventKind string

const (
	EventView  EventKind = "views"
	EventClick EventKind = "clicks"
	EventLead  EventKind = "leads"
)

// ParseEventKind accepts both the singular event name and the counter field name.
func ParseEventKind(s string) (EventKind, error) {
	switch s {
	case "view", "views":
		return EventView, nil
	case "click", "clicks":
		return EventClick, nil
	case "lead", "leads":
		return EventLead, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// DateLayout is the layout of DailyAnalytics.Date and of the document ID.
const DateLayout = "2006-01-02"

// DailyAnalytics holds an owner's counters for one UTC day.
type DailyAnalytics struct {
	OwnerID   string    `firestore:"ownerId" json:"ownerId"`
	Date      string    `firestore:"date" json:"date"`
	Views     int64     `firestore:"views" json:"views"`
	Clicks    int64     `firestore:"clicks" json:"clicks"`
	Leads     int64     `firestore:"leads" json:"leads"`
	Revenue   float64   `firestore:"revenue" json:"revenue"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// NewDailyAnalytics returns a record with the counter for kind at 1 and every other counter at 0.
func NewDailyAnalytics(ownerID, date string, kind EventKind, now time.Time) DailyAnalytics {
	rec := DailyAnalytics{
		OwnerID:   ownerID,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch kind {
	case EventView:
		rec.Views = 1
	case EventClick:
		rec.Clicks = 1
	case EventLead:
		rec.Leads = 1
	}
	return rec
}

// AnalyticsSummary aggregates an owner's daily records over a date range.
type AnalyticsSummary struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Days    []DailyAnalytics `json:"days"`
	Views   int64            `json:"views"`
	Clicks  int64            `json:"clicks"`
	Leads   int64            `json:"leads"`
	Revenue float64          `json:"revenue"`
}
