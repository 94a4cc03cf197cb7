package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bharathbs2003/cinehack/shared/config"

	"go.uber.org/zap"
)

// Client handles translation service calls.
type Client struct {
	apiKey  string
	apiURL  string
	client  *http.Client
	limiter *rateLimiter
	logger  *zap.Logger
}

// NewClient creates a translation client. A positive RPS setting applies
// client-side rate limiting across all calls.
func NewClient(cfg config.TranslateConfig, logger *zap.Logger) *Client {
	return &Client{
		apiKey: cfg.APIKey,
		apiURL: cfg.URL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: newRateLimiter(cfg.RPS),
		logger:  logger,
	}
}

// Translate translates a batch of texts from sourceLang to targetLang.
// The result is index-aligned with the input.
func (c *Client) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"source_language": sourceLang,
		"target_language": targetLang,
		"texts":           texts,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *http.Response
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		req, reqErr := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(bodyBytes))
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
		}

		resp, err = c.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}
		if i == maxRetries-1 {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to call translation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("translation service returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Data    []string `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("translation service error: %s", apiResp.Message)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("translation count mismatch: expected %d, got %d", len(texts), len(apiResp.Data))
	}

	return apiResp.Data, nil
}
