package transcribe

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

// Result is the normalized transcription response.
type Result struct {
	Segments   []models.TimeSegment
	Language   string
	DurationMs int
}

// Client calls the speech recognition service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a transcription client.
func NewClient(cfg config.TranscribeConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
		logger: logger,
	}
}

// Transcribe recognizes speech in the audio reachable at audioURL and
// returns time-aligned segments with word timings where available.
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) (*Result, error) {
	reqBody := map[string]interface{}{
		"audio_url": audioURL,
		"language":  language,
		"word_timestamps": true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/transcribe"
	resp, err := c.doWithRetry(ctx, url, bodyBytes)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcription service returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Segments []struct {
				Start float64       `json:"start"`
				End   float64       `json:"end"`
				Text  string        `json:"text"`
				Words []models.Word `json:"words"`
			} `json:"segments"`
			Language   string `json:"language"`
			DurationMs int    `json:"duration_ms"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("transcription service error: %s", apiResp.Message)
	}

	result := &Result{
		Language:   apiResp.Data.Language,
		DurationMs: apiResp.Data.DurationMs,
	}
	for i, s := range apiResp.Data.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, models.TimeSegment{
			Idx:   i,
			Start: s.Start,
			End:   s.End,
			Text:  text,
			Words: s.Words,
		})
	}

	c.logger.Info("Transcription completed",
		zap.Int("segments", len(result.Segments)),
		zap.String("language", result.Language),
	)

	return result, nil
}

func (c *Client) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var resp *http.Response
	var err error

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		req, reqErr := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err = c.client.Do(req)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
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
		return nil, fmt.Errorf("failed to call transcription service: %w", err)
	}
	return resp, nil
}
