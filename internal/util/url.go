package util

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are stripped from listing websites before they are stored.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// NormalizeWebsiteURL turns what an owner typed into a canonical http(s) URL.
// A missing scheme defaults to https. The host is lower-cased, a trailing
// slash is dropped and tracking parameters are removed.
func NormalizeWebsiteURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", nil
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return rawURL, fmt.Errorf("unsupported URL scheme %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return rawURL, fmt.Errorf("URL %q has no host", rawURL)
	}

	parsedURL.Host = strings.ToLower(parsedURL.Host)
	if len(parsedURL.Path) > 1 && strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path = parsedURL.Path[:len(parsedURL.Path)-1]
		// Clear RawPath so String() regenerates the path without the trailing slash
		parsedURL.RawPath = ""
	}
	if parsedURL.Path == "/" {
		parsedURL.Path = ""
	}

	queryParams := parsedURL.Query()
	for _, param := range trackingParams {
		queryParams.Del(param)
	}
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String(), nil
}
