package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stillmind/api/internal/config"
)

// AudioEncoder transcodes a mastered WAV buffer into the requested delivery
// format. WAV output never needs it; MP3 goes through the encoder sidecar.
type AudioEncoder interface {
	Encode(ctx context.Context, wavBytes []byte, format string, quality int) ([]byte, error)
	IsConfigured() bool
}

// EncoderClient implements AudioEncoder against the encoder microservice.
type EncoderClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewEncoderClient creates a new encoder service client.
func NewEncoderClient(cfg *config.EncoderConfig) *EncoderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}
	return &EncoderClient{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		baseURL:    cfg.ServiceURL,
	}
}

// IsConfigured returns true when a service URL is set.
func (c *EncoderClient) IsConfigured() bool {
	return c.baseURL != ""
}

// Encode posts WAV bytes to the encoder sidecar and returns the transcoded
// audio.
func (c *EncoderClient) Encode(ctx context.Context, wavBytes []byte, format string, quality int) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/encode?format=%s&quality=%d", c.baseURL, format, quality)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wavBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("encoder error %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
