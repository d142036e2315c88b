// Package detector decides when a statically fetched page needs a rendered
// re-fetch to expose script-generated content.
package detector

import (
	"strings"

	"github.com/eventlens/crawler/internal/ingest"
)

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. threshold is the body size below
// which a script-heavy page is considered empty.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = []string{
	"__next",
	`id="root"`,
	`id="app"`,
	"data-reactroot",
}

// ShouldPromote reports whether the static result likely misses content
// that only exists after script execution.
func (h *Heuristic) ShouldPromote(result ingest.FetchResult) bool {
	if result.StatusCode != 200 {
		return false
	}
	body := result.Content
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func scriptDensityHigh(body string) bool {
	lower := strings.ToLower(body)
	total := len(lower)
	if total == 0 {
		return false
	}
	scriptBytes := 0
	for {
		start := strings.Index(lower, "<script")
		if start < 0 {
			break
		}
		end := strings.Index(lower[start:], "</script>")
		if end < 0 {
			scriptBytes += len(lower) - start
			break
		}
		scriptBytes += end + len("</script>")
		lower = lower[start+end+len("</script>"):]
	}
	return scriptBytes*2 > total
}
