package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bharathbs2003/cinehack/shared/config"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"go.uber.org/zap"
)

// Client calls the speaker diarization service. The diarize pipeline step
// treats every error from this client as degradable and falls back to the
// pause heuristic.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a diarization client.
func NewClient(cfg config.DiarizeConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
		logger: logger,
	}
}

// Enabled reports whether a diarization endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Diarize returns the speaker turns detected in the audio at audioURL.
// Zero values for minSpeakers or maxSpeakers leave the bound unset.
func (c *Client) Diarize(ctx context.Context, audioURL string, minSpeakers, maxSpeakers int) ([]models.DiarizationTurn, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("diarization service not configured")
	}

	reqBody := map[string]interface{}{
		"audio_url": audioURL,
	}
	if minSpeakers > 0 {
		reqBody["min_speakers"] = minSpeakers
	}
	if maxSpeakers > 0 {
		reqBody["max_speakers"] = maxSpeakers
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/diarize"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call diarization service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarization service returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Code    int                      `json:"code"`
		Message string                   `json:"message"`
		Data    []models.DiarizationTurn `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("diarization service error: %s", apiResp.Message)
	}

	c.logger.Info("Diarization completed", zap.Int("turns", len(apiResp.Data)))
	return apiResp.Data, nil
}
