package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bharathbs2003/cinehack/shared/config"

	"go.uber.org/zap"
)

func TestTranslateBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SourceLanguage string   `json:"source_language"`
			TargetLanguage string   `json:"target_language"`
			Texts          []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.SourceLanguage != "en" || req.TargetLanguage != "hi" {
			t.Errorf("unexpected languages: %s -> %s", req.SourceLanguage, req.TargetLanguage)
		}

		out := make([]string, len(req.Texts))
		for i, s := range req.Texts {
			out[i] = "hi:" + s
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0, "message": "success", "data": out,
		})
	}))
	defer srv.Close()

	c := NewClient(config.TranslateConfig{URL: srv.URL}, zap.NewNop())
	got, err := c.Translate(context.Background(), []string{"one", "two"}, "en", "hi")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got) != 2 || got[0] != "hi:one" || got[1] != "hi:two" {
		t.Fatalf("unexpected translations: %v", got)
	}
}

func TestTranslateCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"message":"success","data":["only-one"]}`))
	}))
	defer srv.Close()

	c := NewClient(config.TranslateConfig{URL: srv.URL}, zap.NewNop())
	if _, err := c.Translate(context.Background(), []string{"a", "b"}, "en", "hi"); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestTranslateServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1004,"message":"upstream unavailable","data":null}`))
	}))
	defer srv.Close()

	c := NewClient(config.TranslateConfig{URL: srv.URL}, zap.NewNop())
	if _, err := c.Translate(context.Background(), []string{"a"}, "en", "hi"); err == nil {
		t.Fatal("expected service error")
	}
}

func TestTranslateEmptyInput(t *testing.T) {
	c := NewClient(config.TranslateConfig{URL: "http://unused"}, zap.NewNop())
	got, err := c.Translate(context.Background(), nil, "en", "hi")
	if err != nil || got != nil {
		t.Fatalf("empty input should be a no-op, got %v, %v", got, err)
	}
}
