package fetcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eventlens/crawler/internal/ingest"
)

func TestMarkerClassifier_CleanPage(t *testing.T) {
	t.Parallel()

	c := DefaultClassifier()
	err := c.Classify("https://example.com/events", ingest.FetchResult{
		FinalURL: "https://example.com/events",
		Content:  "<html><title>Upcoming Events</title><body>concert listings</body></html>",
	})
	require.NoError(t, err)
}

func TestMarkerClassifier_RedirectToChallengeDomain(t *testing.T) {
	t.Parallel()

	c := DefaultClassifier()
	err := c.Classify("https://example.com/events", ingest.FetchResult{
		FinalURL: "https://challenge.cloudflare.com/cdn-cgi/verify",
		Content:  "<html>ok</html>",
	})

	var botErr *ingest.BotDetectionError
	require.ErrorAs(t, err, &botErr)
	require.Equal(t, "cloudflare", botErr.Marker)
	require.Equal(t, "https://challenge.cloudflare.com/cdn-cgi/verify", botErr.URL)
}

func TestMarkerClassifier_SameURLNotRedirectChecked(t *testing.T) {
	t.Parallel()

	// The domain marker only fires on a redirect; a site legitimately served
	// through Cloudflare keeps its own URL and clean content.
	c := DefaultClassifier()
	err := c.Classify("https://example.com", ingest.FetchResult{
		FinalURL: "https://example.com",
		Content:  "<html><body>events</body></html>",
	})
	require.NoError(t, err)
}

func TestMarkerClassifier_ProxyInterstitialContent(t *testing.T) {
	t.Parallel()

	c := DefaultClassifier()
	err := c.Classify("https://example.com", ingest.FetchResult{
		FinalURL: "https://example.com",
		Content:  "<html><body>ScrapingBee could not fetch this page</body></html>",
	})

	var botErr *ingest.BotDetectionError
	require.ErrorAs(t, err, &botErr)
	require.Equal(t, "scrapingbee", botErr.Marker)
}

func TestMarkerClassifier_ChallengeTitle(t *testing.T) {
	t.Parallel()

	c := DefaultClassifier()
	err := c.Classify("https://example.com", ingest.FetchResult{
		FinalURL: "https://example.com",
		Content:  "<html><head><title>Just a moment...</title></head><body></body></html>",
	})

	var botErr *ingest.BotDetectionError
	require.ErrorAs(t, err, &botErr)
	require.Equal(t, "just a moment", botErr.Marker)
}

func TestMarkerClassifier_CustomVocabulary(t *testing.T) {
	t.Parallel()

	c := NewMarkerClassifier([]string{"Perimeterx"}, nil)
	err := c.Classify("https://example.com", ingest.FetchResult{
		FinalURL: "https://block.perimeterx.net/check",
		Content:  "<html></html>",
	})

	var botErr *ingest.BotDetectionError
	require.ErrorAs(t, err, &botErr)
	require.Equal(t, "perimeterx", botErr.Marker)
}

func TestMarkerClassifier_CaseInsensitive(t *testing.T) {
	t.Parallel()

	c := DefaultClassifier()
	err := c.Classify("https://example.com", ingest.FetchResult{
		FinalURL: "https://example.com",
		Content:  "<html><body>SCRAPINGBEE</body></html>",
	})
	require.Error(t, err)
}
