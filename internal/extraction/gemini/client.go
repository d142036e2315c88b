// Package gemini is a thin client for the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-pro"
)

// Config holds connection parameters for the model endpoint.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements ingest.Extractor against the Gemini API. It owns prompt
// construction; the adapter owns truncation and response validation.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract submits the extraction prompt and returns the raw JSON reply.
func (c *Client) Extract(ctx context.Context, pageContent string, schema map[string]any, hints string) (json.RawMessage, error) {
	prompt, err := buildPrompt(pageContent, schema, hints)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, truncateForError(respBody))
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode model envelope: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("model returned no candidates")
	}
	return json.RawMessage(decoded.Candidates[0].Content.Parts[0].Text), nil
}

func buildPrompt(pageContent string, schema map[string]any, hints string) (string, error) {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	if hints == "" {
		hints = "No specific notes"
	}
	return fmt.Sprintf(`Extract event information from this page and map it to the exact structure provided.

TARGET STRUCTURE:
%s

PAGE CONTENT:
%s

WEBSITE NOTES:
%s

For each field in the structure:
1. Find the value in the page
2. Transform it to match the type (string, datetime, number, etc.)
3. Give a confidence score (0-100):
   - 90-100: Perfect match, certain
   - 70-89: Good match, minor uncertainty
   - 40-69: Had to guess or interpret
   - 0-39: Missing or very uncertain

Return JSON in this exact format:
{
    "event_data": {...matches structure exactly...},
    "field_confidences": {"field_path": score, ...},
    "notes": "Brief explanation of uncertainties or issues"
}

IMPORTANT:
- Use dot notation for nested fields (e.g., "location.venue": 85)
- Ensure event_data matches the structure exactly
- All dates should be ISO 8601 format
- If a field is missing, set it to null and give low confidence`,
		schemaJSON, pageContent, hints), nil
}

func truncateForError(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
