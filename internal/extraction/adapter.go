// Package extraction validates the external model's output against the
// contract the rest of the pipeline depends on.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/ingest"
)

// DefaultMaxContentChars bounds the content prefix handed to the model.
const DefaultMaxContentChars = 15000

// Adapter wraps an ingest.Extractor and enforces the response contract:
// event_data and field_confidences are load-bearing and must be present;
// notes is advisory and defaults to empty.
type Adapter struct {
	extractor       ingest.Extractor
	maxContentChars int
	logger          *zap.Logger
}

// NewAdapter builds an Adapter. maxContentChars <= 0 selects the default.
func NewAdapter(extractor ingest.Extractor, maxContentChars int, logger *zap.Logger) *Adapter {
	if maxContentChars <= 0 {
		maxContentChars = DefaultMaxContentChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		extractor:       extractor,
		maxContentChars: maxContentChars,
		logger:          logger,
	}
}

// Extract truncates the raw content, invokes the model boundary and
// validates the reply shape. Every failure is wrapped into the single
// "extraction failed" category carrying the underlying cause.
func (a *Adapter) Extract(ctx context.Context, content string, schema map[string]any, hints string) (ingest.Extraction, error) {
	if len(content) > a.maxContentChars {
		a.logger.Debug("truncating content for extraction",
			zap.Int("original_chars", len(content)),
			zap.Int("max_chars", a.maxContentChars),
		)
		content = content[:a.maxContentChars]
	}

	raw, err := a.extractor.Extract(ctx, content, schema, hints)
	if err != nil {
		return ingest.Extraction{}, fmt.Errorf("extraction failed: %w", err)
	}

	extraction, err := parseResponse(raw)
	if err != nil {
		return ingest.Extraction{}, fmt.Errorf("extraction failed: %w", err)
	}
	return extraction, nil
}

func parseResponse(raw json.RawMessage) (ingest.Extraction, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ingest.Extraction{}, fmt.Errorf("malformed model response: %w", err)
	}

	eventRaw, ok := fields["event_data"]
	if !ok {
		return ingest.Extraction{}, fmt.Errorf("model response missing event_data")
	}
	confRaw, ok := fields["field_confidences"]
	if !ok {
		return ingest.Extraction{}, fmt.Errorf("model response missing field_confidences")
	}

	var eventData map[string]any
	if err := json.Unmarshal(eventRaw, &eventData); err != nil {
		return ingest.Extraction{}, fmt.Errorf("decode event_data: %w", err)
	}
	var confidences map[string]any
	if err := json.Unmarshal(confRaw, &confidences); err != nil {
		return ingest.Extraction{}, fmt.Errorf("decode field_confidences: %w", err)
	}
	if err := validateConfidenceTree(confidences, ""); err != nil {
		return ingest.Extraction{}, err
	}

	notes := ""
	if notesRaw, ok := fields["notes"]; ok {
		if err := json.Unmarshal(notesRaw, &notes); err != nil {
			return ingest.Extraction{}, fmt.Errorf("decode notes: %w", err)
		}
	}

	return ingest.Extraction{
		EventData:        eventData,
		FieldConfidences: confidences,
		Notes:            notes,
	}, nil
}

// validateConfidenceTree rejects non-numeric leaves so the aggregator only
// ever sees scores.
func validateConfidenceTree(tree map[string]any, path string) error {
	for key, value := range tree {
		fieldPath := key
		if path != "" {
			fieldPath = path + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			if err := validateConfidenceTree(v, fieldPath); err != nil {
				return err
			}
		case float64:
			if v < 0 || v > 100 {
				return fmt.Errorf("confidence for %q out of range: %v", fieldPath, v)
			}
		default:
			return fmt.Errorf("confidence for %q is not numeric: %T", fieldPath, value)
		}
	}
	return nil
}
