package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

// Client talks to the generative gateway, the HTTP service fronting the
// text, image, and voice models used by synthetic-generation jobs.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New builds a gateway client. An empty base URL yields a client whose calls
// fail fast; the daemon refuses story jobs in that case.
func New(cfg config.Gateway) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a gateway endpoint is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// GenerateText requests prose for a prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/v1/text", map[string]string{"prompt": prompt}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// GenerateImage requests image bytes for a prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return c.postRaw(ctx, "/v1/image", map[string]string{"prompt": prompt})
}

// SynthesizeVoice requests narration audio for a scene's text.
func (c *Client) SynthesizeVoice(ctx context.Context, text, voiceID string) ([]byte, error) {
	return c.postRaw(ctx, "/v1/voice", map[string]string{"text": text, "voice_id": voiceID})
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := c.postRaw(ctx, path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gateway %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, payload any) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("gateway %s: no base URL configured", path)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: encode request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("gateway %s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: read response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, fmt.Errorf("gateway %s: status %d: %s", path, resp.StatusCode, detail)
	}
	return body, nil
}
