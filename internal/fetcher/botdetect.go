package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventlens/crawler/internal/ingest"
)

// BotClassifier inspects a fetched page and reports whether it is a
// bot-challenge response rather than real content. Returning nil means the
// page is clean; otherwise the returned error is a *ingest.BotDetectionError.
type BotClassifier interface {
	Classify(requestedURL string, result ingest.FetchResult) error
}

// MarkerClassifier matches a small fixed vocabulary of challenge-service
// domains and challenge-page markers, case-insensitively.
type MarkerClassifier struct {
	// domainMarkers flag a redirect to a challenge service: when the final
	// resolved URL differs from the requested one and contains a marker,
	// the fetch is classified as blocked regardless of HTTP-level success.
	domainMarkers []string
	// titleMarkers are interstitial page titles emitted by challenge pages.
	titleMarkers []string
}

// DefaultClassifier builds a MarkerClassifier with the stock vocabulary.
func DefaultClassifier() *MarkerClassifier {
	return &MarkerClassifier{
		domainMarkers: []string{"scrapingbee", "cloudflare"},
		titleMarkers:  []string{"just a moment", "attention required", "access denied"},
	}
}

// NewMarkerClassifier builds a classifier with a custom vocabulary.
func NewMarkerClassifier(domainMarkers, titleMarkers []string) *MarkerClassifier {
	return &MarkerClassifier{
		domainMarkers: lowerAll(domainMarkers),
		titleMarkers:  lowerAll(titleMarkers),
	}
}

// Classify applies URL and content checks in order: redirect to a challenge
// domain, proxy interstitial body, challenge page body, challenge page title.
func (c *MarkerClassifier) Classify(requestedURL string, result ingest.FetchResult) error {
	finalURL := strings.ToLower(result.FinalURL)
	if result.FinalURL != "" && result.FinalURL != requestedURL {
		for _, marker := range c.domainMarkers {
			if strings.Contains(finalURL, marker) {
				return &ingest.BotDetectionError{URL: result.FinalURL, Marker: marker}
			}
		}
	}

	content := strings.ToLower(result.Content)
	if strings.Contains(content, "scrapingbee") {
		return &ingest.BotDetectionError{URL: requestedURL, Marker: "scrapingbee"}
	}
	if strings.Contains(content, "cloudflare") && strings.Contains(content, "challenge") {
		return &ingest.BotDetectionError{URL: requestedURL, Marker: "cloudflare challenge"}
	}

	if marker := c.challengeTitle(result.Content); marker != "" {
		return &ingest.BotDetectionError{URL: requestedURL, Marker: marker}
	}
	return nil
}

// challengeTitle parses the document title; interstitials often carry a
// recognizable title even when the body text is obfuscated.
func (c *MarkerClassifier) challengeTitle(content string) string {
	if len(c.titleMarkers) == 0 || content == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	if title == "" {
		return ""
	}
	for _, marker := range c.titleMarkers {
		if strings.Contains(title, marker) {
			return marker
		}
	}
	return ""
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
