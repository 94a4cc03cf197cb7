package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bharathbs2003/cinehack/shared/config"

	"go.uber.org/zap"
)

func TestCatalogBucketsByGender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("language") != "hi" {
			t.Errorf("unexpected language query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"voices":[
			{"id":"v1","name":"A","gender":"Male","language":"hi"},
			{"id":"v2","name":"B","gender":"Female (adult)","language":"hi"},
			{"id":"v3","name":"C","gender":"","language":"hi"}
		]}`))
	}))
	defer srv.Close()

	c := NewCatalog(config.VoiceCatalogConfig{URL: srv.URL}, zap.NewNop())
	pools := c.PoolsForLanguage(context.Background(), "hi")

	if len(pools["male"]) != 1 || pools["male"][0].ID != "v1" {
		t.Fatalf("unexpected male pool: %v", pools["male"])
	}
	if len(pools["female"]) != 1 || pools["female"][0].ID != "v2" {
		t.Fatalf("unexpected female pool: %v", pools["female"])
	}
	if len(pools["neutral"]) != 1 || pools["neutral"][0].ID != "v3" {
		t.Fatalf("unexpected neutral pool: %v", pools["neutral"])
	}
}

func TestCatalogFallsBackOnServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCatalog(config.VoiceCatalogConfig{URL: srv.URL}, zap.NewNop())
	pools := c.PoolsForLanguage(context.Background(), "en")

	if len(pools["male"]) == 0 || len(pools["female"]) == 0 {
		t.Fatalf("expected static fallback pool, got %v", pools)
	}
}

func TestCatalogFallsBackOnEmptyCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"voices":[]}`))
	}))
	defer srv.Close()

	c := NewCatalog(config.VoiceCatalogConfig{URL: srv.URL}, zap.NewNop())
	pools := c.PoolsForLanguage(context.Background(), "en")

	if len(pools["male"]) == 0 {
		t.Fatalf("expected fallback voices for empty catalog, got %v", pools)
	}
}

func TestCatalogWithoutURLUsesFallback(t *testing.T) {
	c := NewCatalog(config.VoiceCatalogConfig{}, zap.NewNop())
	pools := c.PoolsForLanguage(context.Background(), "en")

	if len(pools["male"]) != 5 || len(pools["female"]) != 5 {
		t.Fatalf("unexpected fallback pool sizes: %d male, %d female",
			len(pools["male"]), len(pools["female"]))
	}
}
