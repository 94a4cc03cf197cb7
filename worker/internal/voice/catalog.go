package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bharathbs2003/cinehack/shared/config"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"go.uber.org/zap"
)

// fallbackVoices is the static pool used when the catalog service is down
// or carries no voices for the requested language.
var fallbackVoices = map[string][]models.Voice{
	"male": {
		{ID: "en-IN-arjun", Name: "Arjun", Gender: "male", Language: "en-IN"},
		{ID: "en-IN-rohan", Name: "Rohan", Gender: "male", Language: "en-IN"},
		{ID: "en-IN-raj", Name: "Raj", Gender: "male", Language: "en-IN"},
		{ID: "en-IN-vikram", Name: "Vikram", Gender: "male", Language: "en-IN"},
		{ID: "en-IN-amit", Name: "Amit", Gender: "male", Language: "en-IN"},
	},
	"female": {
		{ID: "en-IN-priya", Name: "Priya", Gender: "female", Language: "en-IN"},
		{ID: "en-IN-anjali", Name: "Anjali", Gender: "female", Language: "en-IN"},
		{ID: "en-IN-diya", Name: "Diya", Gender: "female", Language: "en-IN"},
		{ID: "en-IN-kavya", Name: "Kavya", Gender: "female", Language: "en-IN"},
		{ID: "en-IN-meera", Name: "Meera", Gender: "female", Language: "en-IN"},
	},
	"neutral": {},
}

// Catalog fetches available synthesis voices from the voice catalog service.
type Catalog struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewCatalog creates a catalog client. An empty URL means the static
// fallback pool is always used.
func NewCatalog(cfg config.VoiceCatalogConfig, logger *zap.Logger) *Catalog {
	return &Catalog{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// PoolsForLanguage returns voices for the given language bucketed by gender
// (male, female, neutral). Service failures and empty catalogs fall back to
// the static pool; this method never returns an error for provider issues.
func (c *Catalog) PoolsForLanguage(ctx context.Context, language string) map[string][]models.Voice {
	if c.baseURL == "" {
		return clonePools(fallbackVoices)
	}

	voices, err := c.fetch(ctx, language)
	if err != nil {
		c.logger.Warn("Voice catalog unavailable, using fallback pool",
			zap.String("language", language),
			zap.Error(err),
		)
		return clonePools(fallbackVoices)
	}

	pools := map[string][]models.Voice{"male": {}, "female": {}, "neutral": {}}
	for _, v := range voices {
		bucket := normalizeGender(v.Gender)
		v.Gender = bucket
		pools[bucket] = append(pools[bucket], v)
	}

	if len(pools["male"]) == 0 && len(pools["female"]) == 0 && len(pools["neutral"]) == 0 {
		c.logger.Warn("Voice catalog returned no voices, using fallback pool",
			zap.String("language", language),
		)
		return clonePools(fallbackVoices)
	}

	return pools
}

func (c *Catalog) fetch(ctx context.Context, language string) ([]models.Voice, error) {
	url := fmt.Sprintf("%s/voices?language=%s", strings.TrimRight(c.baseURL, "/"), language)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call voice catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice catalog returned status %d", resp.StatusCode)
	}

	var apiResp struct {
		Voices []models.Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return apiResp.Voices, nil
}

// normalizeGender maps free-form catalog gender strings onto the three
// allocator buckets. "female" is checked first so labels like
// "Female (adult)" do not fall into the male bucket.
func normalizeGender(raw string) string {
	g := strings.ToLower(raw)
	switch {
	case strings.Contains(g, "female"):
		return "female"
	case strings.Contains(g, "male"):
		return "male"
	default:
		return "neutral"
	}
}

func clonePools(src map[string][]models.Voice) map[string][]models.Voice {
	out := make(map[string][]models.Voice, len(src))
	for k, v := range src {
		out[k] = append([]models.Voice(nil), v...)
	}
	return out
}
