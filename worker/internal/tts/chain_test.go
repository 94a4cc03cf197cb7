package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubSynthesizer struct {
	name  string
	audio string
	err   error
	calls int
}

func (s *stubSynthesizer) Name() string { return s.name }

func (s *stubSynthesizer) Synthesize(ctx context.Context, req Request) (io.ReadCloser, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.audio)), nil
}

func TestChainUsesPrimaryFirst(t *testing.T) {
	primary := &stubSynthesizer{name: "primary", audio: "primary-audio"}
	fallback := &stubSynthesizer{name: "fallback", audio: "fallback-audio"}
	c := NewChainFromProviders([]Synthesizer{primary, fallback}, zap.NewNop())

	body, err := c.Synthesize(context.Background(), Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "primary-audio" {
		t.Fatalf("expected primary audio, got %q", data)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times, expected 0", fallback.calls)
	}
}

func TestChainFallsThroughInOrder(t *testing.T) {
	first := &stubSynthesizer{name: "a", err: fmt.Errorf("down")}
	second := &stubSynthesizer{name: "b", err: fmt.Errorf("also down")}
	third := &stubSynthesizer{name: "c", audio: "ok"}
	c := NewChainFromProviders([]Synthesizer{first, second, third}, zap.NewNop())

	body, err := c.Synthesize(context.Background(), Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	body.Close()

	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("unexpected call counts: %d %d %d", first.calls, second.calls, third.calls)
	}
}

func TestChainReportsExhaustion(t *testing.T) {
	c := NewChainFromProviders([]Synthesizer{
		&stubSynthesizer{name: "a", err: fmt.Errorf("down")},
		&stubSynthesizer{name: "b", err: fmt.Errorf("still down")},
	}, zap.NewNop())

	if _, err := c.Synthesize(context.Background(), Request{Text: "x"}); err == nil {
		t.Fatal("expected error when every provider fails")
	}
}

func TestProviderFollowsAudioURL(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/synthesize":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"audio_url":"/audio/clip.wav","duration_ms":1200}`))
		case "/audio/clip.wav":
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write([]byte("wav-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProvider("primary", srv.URL, "", zap.NewNop())
	body, err := p.Synthesize(context.Background(), Request{Text: "hello", VoiceID: "v1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "wav-bytes" {
		t.Fatalf("expected downloaded audio, got %q", data)
	}
}

func TestProviderDirectAudioResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("raw-audio"))
	}))
	defer srv.Close()

	p := NewProvider("primary", srv.URL, "", zap.NewNop())
	body, err := p.Synthesize(context.Background(), Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "raw-audio" {
		t.Fatalf("expected direct audio body, got %q", data)
	}
}
