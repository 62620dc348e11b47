package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stillmind/api/internal/config"
	"github.com/stillmind/api/internal/model"
)

// TTSSynthesizer is the capability interface every voice provider implements.
type TTSSynthesizer interface {
	Synthesize(ctx context.Context, text string, settings model.VoiceSettings) ([]byte, error)
	IsConfigured() bool
}

// TTSRegistry selects a provider implementation by its identifier, keeping
// provider branching out of the render pipeline.
type TTSRegistry struct {
	providers map[model.TTSProvider]TTSSynthesizer
}

// NewTTSRegistry builds the registry from configuration. Unconfigured
// providers are still registered; IsConfigured gates the mock fallback.
func NewTTSRegistry(cfg *config.TTSConfig) *TTSRegistry {
	return &TTSRegistry{
		providers: map[model.TTSProvider]TTSSynthesizer{
			model.TTSProviderOpenAI:     NewOpenAITTSClient(&cfg.OpenAI),
			model.TTSProviderElevenLabs: NewElevenLabsClient(&cfg.ElevenLabs),
		},
	}
}

// Provider returns the synthesizer registered for an identifier.
func (r *TTSRegistry) Provider(name model.TTSProvider) (TTSSynthesizer, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tts provider %q", name)
	}
	return p, nil
}

// AnyConfigured reports whether at least one provider has credentials.
func (r *TTSRegistry) AnyConfigured() bool {
	for _, p := range r.providers {
		if p.IsConfigured() {
			return true
		}
	}
	return false
}

// OpenAITTSClient implements TTSSynthesizer against the OpenAI speech endpoint.
type OpenAITTSClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAITTSClient creates a new OpenAI TTS client.
func NewOpenAITTSClient(cfg *config.OpenAIConfig) *OpenAITTSClient {
	return &OpenAITTSClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true when an API key is present.
func (c *OpenAITTSClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Synthesize converts text to audio bytes (PCM WAV).
func (c *OpenAITTSClient) Synthesize(ctx context.Context, text string, settings model.VoiceSettings) ([]byte, error) {
	payload := map[string]interface{}{
		"model":           settings.Model,
		"input":           text,
		"voice":           settings.VoiceID,
		"speed":           settings.Speed,
		"response_format": "wav",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai tts error %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

// ElevenLabsClient implements TTSSynthesizer against the ElevenLabs API.
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewElevenLabsClient creates a new ElevenLabs TTS client.
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true when an API key is present.
func (c *ElevenLabsClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Synthesize converts text to audio bytes (PCM WAV).
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, settings model.VoiceSettings) ([]byte, error) {
	payload := map[string]interface{}{
		"text":     text,
		"model_id": settings.Model,
		"voice_settings": map[string]interface{}{
			"speed": settings.Speed,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_44100", c.baseURL, settings.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs tts error %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
