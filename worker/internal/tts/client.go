package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Request describes one synthesis call.
type Request struct {
	Text       string `json:"text"`
	VoiceID    string `json:"voice_id"`
	Language   string `json:"language"`
	Emotion    string `json:"emotion,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Format     string `json:"output_format"`
}

// Synthesizer produces speech audio for a request.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (io.ReadCloser, error)
}

// Provider is an HTTP speech synthesis backend. Responses either carry the
// audio bytes directly or point at them through an audio_url field.
type Provider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewProvider creates a synthesis provider client.
func NewProvider(name, baseURL, apiKey string, logger *zap.Logger) *Provider {
	return &Provider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 600 * time.Second,
		},
		logger: logger,
	}
}

// Name identifies the provider in logs and fallback decisions.
func (p *Provider) Name() string {
	return p.name
}

// Synthesize generates speech for the request and returns a reader over the
// audio bytes. The caller owns closing the reader.
func (p *Provider) Synthesize(ctx context.Context, req Request) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(p.baseURL, "/") + "/synthesize"

	var resp *http.Response
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		httpReq, reqErr := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		if p.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err = p.client.Do(httpReq)
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
		return nil, fmt.Errorf("failed to call synthesis service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("synthesis service returned status %d: %s", resp.StatusCode, string(body))
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "json") {
		// Direct audio response.
		return resp.Body, nil
	}

	var apiResp struct {
		AudioURL   string `json:"audio_url"`
		DurationMs int    `json:"duration_ms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	resp.Body.Close()

	if apiResp.AudioURL == "" {
		return nil, fmt.Errorf("synthesis response carries no audio")
	}

	audioURL := apiResp.AudioURL
	if strings.HasPrefix(audioURL, "/") {
		audioURL = strings.TrimRight(p.baseURL, "/") + audioURL
	}

	audioReq, err := http.NewRequestWithContext(ctx, "GET", audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio request: %w", err)
	}

	audioResp, err := p.client.Do(audioReq)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	if audioResp.StatusCode != http.StatusOK {
		audioResp.Body.Close()
		return nil, fmt.Errorf("failed to download audio: status %d", audioResp.StatusCode)
	}

	return audioResp.Body, nil
}
