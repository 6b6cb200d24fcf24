package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aipedia/internal/core"
)

type fakeBackend struct {
	speechCalls int
	freeCalls   int
	lastPremium ElevenLabsTTSRequest
	lastVoiceID string
	lastFree    FreeTTSRequest
	err         error
}

func (f *fakeBackend) Speech(_ context.Context, voiceID, _ string, req ElevenLabsTTSRequest) ([]byte, error) {
	f.speechCalls++
	f.lastVoiceID = voiceID
	f.lastPremium = req
	return []byte("mp3"), f.err
}

func (f *fakeBackend) FreeSpeech(_ context.Context, req FreeTTSRequest) ([]byte, error) {
	f.freeCalls++
	f.lastFree = req
	return []byte("mp3"), f.err
}

var article = core.Article{Title: "Mars", Summary: "The red planet."}

func TestSelect(t *testing.T) {
	tests := []struct {
		provider Provider
		key      string
		expected Provider
		wantErr  bool
	}{
		{ProviderPremium, "xi", ProviderPremium, false},
		{ProviderPremium, "", "", true},
		{ProviderPremium, "   ", "", true},
		{ProviderFree, "", ProviderFree, false},
		{Provider("robot"), "xi", "", true},
	}

	for _, tt := range tests {
		got, err := Select(tt.provider, tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("Select(%q, %q) error = %v, wantErr %v", tt.provider, tt.key, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, core.ErrUnavailable) {
			t.Errorf("Select(%q) error = %v, expected ErrUnavailable", tt.provider, err)
		}
		if got != tt.expected {
			t.Errorf("Select(%q, %q) = %q, expected %q", tt.provider, tt.key, got, tt.expected)
		}
	}
}

func TestNarrate_PremiumWithoutKeyDoesNotFallBack(t *testing.T) {
	backend := &fakeBackend{}
	n := NewNarrator(backend, Settings{})

	_, err := n.Narrate(context.Background(), article, "en", ProviderPremium)

	if !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("err = %v, expected ErrUnavailable", err)
	}
	if backend.speechCalls != 0 || backend.freeCalls != 0 {
		t.Errorf("no provider should be called, got premium=%d free=%d", backend.speechCalls, backend.freeCalls)
	}
}

func TestNarrate_Premium(t *testing.T) {
	backend := &fakeBackend{}
	n := NewNarrator(backend, Settings{APIKey: "xi"})

	audio, err := n.Narrate(context.Background(), article, "en", ProviderPremium)
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if audio.Provider != ProviderPremium || audio.ContentType != "audio/mpeg" {
		t.Errorf("audio = %+v", audio)
	}
	if backend.lastVoiceID != DefaultVoiceID {
		t.Errorf("voice = %q, expected %q", backend.lastVoiceID, DefaultVoiceID)
	}
	if backend.lastPremium.Text != "Mars. The red planet." {
		t.Errorf("text = %q", backend.lastPremium.Text)
	}
	if backend.lastPremium.ModelID != DefaultModelID || backend.lastPremium.VoiceSettings.Stability != 0.5 {
		t.Errorf("request = %+v", backend.lastPremium)
	}
}

func TestNarrate_FreeUsesLanguageVoice(t *testing.T) {
	backend := &fakeBackend{}
	n := NewNarrator(backend, Settings{MaxChars: 6})

	if _, err := n.Narrate(context.Background(), article, "ja", ProviderFree); err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if backend.lastFree.Voice != "ja-JP" {
		t.Errorf("voice = %q, expected ja-JP", backend.lastFree.Voice)
	}
	if backend.lastFree.Text != "Mars. " {
		t.Errorf("text = %q, expected capped text", backend.lastFree.Text)
	}
}

func TestNarrate_BackendError(t *testing.T) {
	backend := &fakeBackend{err: &core.BoundaryError{Operation: "speech", Status: 500}}
	n := NewNarrator(backend, Settings{})

	_, err := n.Narrate(context.Background(), article, "en", ProviderFree)
	var be *core.BoundaryError
	if !errors.As(err, &be) {
		t.Errorf("err = %v, expected wrapped BoundaryError", err)
	}
}

func TestSaveAudio(t *testing.T) {
	dir := t.TempDir()
	n := NewNarrator(&fakeBackend{}, Settings{OutputDir: filepath.Join(dir, "audio")})

	path, err := n.SaveAudio(&Audio{Data: []byte("mp3")}, AudioFileName("The Red Planet: Mars!"))
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	if filepath.Base(path) != "the-red-planet-mars.mp3" {
		t.Errorf("file = %q", filepath.Base(path))
	}
	data, _ := os.ReadFile(path)
	if string(data) != "mp3" {
		t.Errorf("content = %q", data)
	}
}

func TestParseProviderAndVoices(t *testing.T) {
	if p, err := ParseProvider("Premium"); err != nil || p != ProviderPremium {
		t.Errorf("ParseProvider(Premium) = %q, %v", p, err)
	}
	if p, err := ParseProvider(""); err != nil || p != ProviderFree {
		t.Errorf("ParseProvider(\"\") = %q, %v", p, err)
	}
	if _, err := ParseProvider("robot"); err == nil {
		t.Error("expected error for unknown provider")
	}
	if LanguageVoice("xx") != "en-US" || LanguageVoice("DE") != "de-DE" {
		t.Error("unexpected voice mapping")
	}
}

func TestElevenLabsClient_TextToSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("xi-api-key") != "override" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"model_id":"eleven_multilingual_v2"`) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3"))
	}))
	defer server.Close()

	client := NewElevenLabsClient("configured", server.URL)
	body, _ := EncodeElevenLabsRequest(ElevenLabsTTSRequest{Text: "hi", ModelID: DefaultModelID})

	data, err := client.TextToSpeech(context.Background(), "voice1", "override", body)
	if err != nil {
		t.Fatalf("TextToSpeech failed: %v", err)
	}
	if string(data) != "ID3" {
		t.Errorf("data = %q", data)
	}

	if _, err := NewElevenLabsClient("", server.URL).TextToSpeech(context.Background(), "voice1", "", body); err == nil {
		t.Error("expected error without any API key")
	}
}

func TestFreeClient_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tl") != "fr-FR" || q.Get("client") != "tw-ob" || q.Get("q") != "Bonjour" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("ID3"))
	}))
	defer server.Close()

	data, err := NewFreeClient(server.URL).Synthesize(context.Background(), "Bonjour", "fr-FR")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(data) != "ID3" {
		t.Errorf("data = %q", data)
	}
}

func TestEstimateAudioLength(t *testing.T) {
	text := strings.Repeat("word ", 155)
	if got := EstimateAudioLength(text, 1.0); got != 1.0 {
		t.Errorf("EstimateAudioLength = %v, expected 1.0", got)
	}
}
