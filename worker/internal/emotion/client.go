package emotion

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

// Neutral is the default emotion when detection is unavailable, fails, or
// the span is too short to classify.
const Neutral = "neutral"

// minSpanSeconds is the shortest span worth sending to the classifier.
const minSpanSeconds = 0.5

// Client calls the emotion annotation service. The emotion pipeline step
// treats every error as degradable and defaults the annotations to neutral.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates an emotion client.
func NewClient(cfg config.EmotionConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// Enabled reports whether an emotion endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Annotate labels each segment with an emotion. Segments shorter than half a
// second are not sent to the service and stay neutral. The returned slice is
// index-aligned with segments.
func (c *Client) Annotate(ctx context.Context, audioURL string, segments []models.TimeSegment) ([]string, error) {
	emotions := make([]string, len(segments))
	for i := range emotions {
		emotions[i] = Neutral
	}

	if !c.Enabled() {
		return emotions, fmt.Errorf("emotion service not configured")
	}

	type span struct {
		Idx   int     `json:"idx"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}
	spans := make([]span, 0, len(segments))
	for i, seg := range segments {
		if seg.Duration() < minSpanSeconds {
			continue
		}
		spans = append(spans, span{Idx: i, Start: seg.Start, End: seg.End})
	}
	if len(spans) == 0 {
		return emotions, nil
	}

	reqBody := map[string]interface{}{
		"audio_url": audioURL,
		"spans":     spans,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return emotions, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/emotions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return emotions, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return emotions, fmt.Errorf("failed to call emotion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return emotions, fmt.Errorf("emotion service returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    []struct {
			Idx     int    `json:"idx"`
			Emotion string `json:"emotion"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return emotions, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Code != 0 {
		return emotions, fmt.Errorf("emotion service error: %s", apiResp.Message)
	}

	for _, e := range apiResp.Data {
		if e.Idx >= 0 && e.Idx < len(emotions) && e.Emotion != "" {
			emotions[e.Idx] = e.Emotion
		}
	}

	c.logger.Info("Emotion annotation completed",
		zap.Int("segments", len(segments)),
		zap.Int("classified", len(apiResp.Data)),
	)
	return emotions, nil
}
