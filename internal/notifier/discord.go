// Package notifier posts moderation notifications for listings to a Discord webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/bizdir/internal/models"
)

const (
	colorPending  = 16753920 // #FFA500
	colorActive   = 3066993  // #2ECC71
	colorRejected = 16711680 // #FF0000

	maxDescriptionLen = 300
)

type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// New returns a client for the webhook. An empty URL makes every call a no-op.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows roughly 30 webhook calls per minute.
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

// Submitted announces a newly submitted listing and returns the message ID.
func (c *Client) Submitted(ctx context.Context, l models.Listing) (string, error) {
	if c.webhookURL == "" {
		return "", nil
	}
	return c.sendAndGetMessageID(ctx, formatListingToEmbed(l))
}

// StatusChanged edits the submission message to show the new status, or posts
// a fresh message when there is none.
func (c *Client) StatusChanged(ctx context.Context, messageID string, l models.Listing) error {
	if c.webhookURL == "" {
		return nil
	}
	embed := formatListingToEmbed(l)
	if messageID == "" {
		_, err := c.sendAndGetMessageID(ctx, embed)
		return err
	}
	return c.updateDiscordMessage(ctx, messageID, embed)
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	Timestamp   string                `json:"timestamp,omitempty"`
	Color       int                   `json:"color,omitempty"`
	Thumbnail   discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField   `json:"fields,omitempty"`
	Footer      discordEmbedFooter    `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func formatListingToEmbed(l models.Listing) discordEmbed {
	description := l.Description
	if r := []rune(description); len(r) > maxDescriptionLen {
		description = string(r[:maxDescriptionLen]) + "…"
	}

	var thumbnail discordEmbedThumbnail
	if len(l.Images) > 0 {
		thumbnail.URL = l.Images[0]
	}

	var isoTimestamp string
	if !l.UpdatedAt.IsZero() {
		isoTimestamp = l.UpdatedAt.Format(time.RFC3339)
	}

	category := l.Category
	if l.Subcategory != "" {
		category += " / " + l.Subcategory
	}

	fields := []discordEmbedField{
		{Name: "Status", Value: string(l.Status), Inline: true},
		{Name: "Category", Value: category, Inline: true},
	}
	if l.Price > 0 {
		price := "৳" + strconv.FormatFloat(l.Price, 'f', -1, 64)
		if l.Unit != "" {
			price += " / " + l.Unit
		}
		fields = append(fields, discordEmbedField{Name: "Price", Value: price, Inline: true})
	}
	if l.City != "" {
		fields = append(fields, discordEmbedField{Name: "City", Value: l.City, Inline: true})
	}

	return discordEmbed{
		Title:       l.Title,
		Description: description,
		Timestamp:   isoTimestamp,
		Color:       statusColor(l.Status),
		Thumbnail:   thumbnail,
		Fields:      fields,
		Footer:      discordEmbedFooter{Text: "Listing " + l.ID},
	}
}

func statusColor(s models.ListingStatus) int {
	switch s {
	case models.StatusActive:
		return colorActive
	case models.StatusRejected:
		return colorRejected
	}
	return colorPending
}

func (c *Client) sendAndGetMessageID(ctx context.Context, embed discordEmbed) (string, error) {
	payload := discordWebhookPayload{Embeds: []discordEmbed{embed}}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	bodyBytes, err := c.do(ctx, http.MethodPost, parsedURL.String(), payloadBytes)
	if err != nil {
		return "", err
	}
	var msgResponse discordMessageResponse
	if err := json.Unmarshal(bodyBytes, &msgResponse); err != nil {
		return "", err
	}
	return msgResponse.ID, nil
}

func (c *Client) updateDiscordMessage(ctx context.Context, messageID string, embed discordEmbed) error {
	payload := discordWebhookPayload{Embeds: []discordEmbed{embed}}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	parsedBaseURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return err
	}
	finalPatchURL := fmt.Sprintf("%s://%s%s/messages/%s", parsedBaseURL.Scheme, parsedBaseURL.Host, parsedBaseURL.Path, messageID)

	_, err = c.do(ctx, http.MethodPatch, finalPatchURL, payloadBytes)
	return err
}

// do sends a single request. Notifications are best-effort so nothing is retried.
func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return bodyBytes, nil
	}
	return nil, fmt.Errorf("discord %s failed: %s, body: %s", method, resp.Status, string(bodyBytes))
}
