package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExtractor struct {
	response    json.RawMessage
	err         error
	gotContent  string
	gotSchema   map[string]any
	gotHints    string
	invocations int
}

func (f *fakeExtractor) Extract(_ context.Context, content string, schema map[string]any, hints string) (json.RawMessage, error) {
	f.invocations++
	f.gotContent = content
	f.gotSchema = schema
	f.gotHints = hints
	return f.response, f.err
}

func validResponse() json.RawMessage {
	return json.RawMessage(`{
		"event_data": {"title": "Launch", "date": "2025-01-01"},
		"field_confidences": {"title": 95, "date": 60},
		"notes": "date inferred"
	}`)
}

func TestAdapter_ValidResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: validResponse()}
	a := NewAdapter(fake, 0, zap.NewNop())

	got, err := a.Extract(context.Background(), "<html>launch event</html>", map[string]any{"title": "str"}, "hint")

	require.NoError(t, err)
	require.Equal(t, "Launch", got.EventData["title"])
	require.Equal(t, 95.0, got.FieldConfidences["title"])
	require.Equal(t, "date inferred", got.Notes)
	require.Equal(t, "hint", fake.gotHints)
}

func TestAdapter_TruncatesContent(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: validResponse()}
	a := NewAdapter(fake, 10, zap.NewNop())

	long := "0123456789ABCDEF"
	_, err := a.Extract(context.Background(), long, nil, "")

	require.NoError(t, err)
	require.Equal(t, "0123456789", fake.gotContent)
}

func TestAdapter_ShortContentNotTruncated(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: validResponse()}
	a := NewAdapter(fake, 100, zap.NewNop())

	_, err := a.Extract(context.Background(), "short", nil, "")

	require.NoError(t, err)
	require.Equal(t, "short", fake.gotContent)
}

func TestAdapter_MissingEventData(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`{"field_confidences": {"title": 90}}`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	_, err := a.Extract(context.Background(), "content", nil, "")

	require.Error(t, err)
	require.Contains(t, err.Error(), "extraction failed")
	require.Contains(t, err.Error(), "event_data")
}

func TestAdapter_MissingFieldConfidences(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`{"event_data": {"title": "x"}}`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	_, err := a.Extract(context.Background(), "content", nil, "")

	require.Error(t, err)
	require.Contains(t, err.Error(), "field_confidences")
}

func TestAdapter_NotesDefaultsToEmpty(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`{
		"event_data": {"title": "x"},
		"field_confidences": {"title": 80}
	}`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	got, err := a.Extract(context.Background(), "content", nil, "")

	require.NoError(t, err)
	require.Equal(t, "", got.Notes)
}

func TestAdapter_MalformedResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`not json at all`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	_, err := a.Extract(context.Background(), "content", nil, "")

	require.Error(t, err)
	require.Contains(t, err.Error(), "extraction failed")
}

func TestAdapter_ExtractorErrorWrapped(t *testing.T) {
	t.Parallel()

	cause := errors.New("model unavailable")
	fake := &fakeExtractor{err: cause}
	a := NewAdapter(fake, 0, zap.NewNop())

	_, err := a.Extract(context.Background(), "content", nil, "")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "extraction failed")
}

func TestAdapter_NonNumericConfidenceRejected(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`{
		"event_data": {"title": "x"},
		"field_confidences": {"title": "high"}
	}`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	_, err := a.Extract(context.Background(), "content", nil, "")

	require.Error(t, err)
	require.Contains(t, err.Error(), "not numeric")
}

func TestAdapter_NestedConfidencesValidated(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`{
		"event_data": {"location": {"venue": "Hall A"}},
		"field_confidences": {"location": {"venue": 85, "address": {"city": 70}}}
	}`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	got, err := a.Extract(context.Background(), "content", nil, "")

	require.NoError(t, err)
	loc, ok := got.FieldConfidences["location"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 85.0, loc["venue"])
}

func TestAdapter_OutOfRangeConfidenceRejected(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{response: json.RawMessage(`{
		"event_data": {"title": "x"},
		"field_confidences": {"title": 120}
	}`)}
	a := NewAdapter(fake, 0, zap.NewNop())

	_, err := a.Extract(context.Background(), "content", nil, "")

	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}
