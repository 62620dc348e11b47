package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/stillmind/api/internal/audio"
	"github.com/stillmind/api/internal/client"
	"github.com/stillmind/api/internal/model"
	"github.com/stillmind/api/internal/store"
	"github.com/stillmind/api/internal/websocket"
)

// Render pipeline stage labels, written to the job row at each checkpoint.
const (
	StageSynthesizing = "Synthesizing voice"
	StageMixing       = "Mixing layers"
	StageNormalizing  = "Normalizing"
	StageEncoding     = "Encoding"
	StageUploading    = "Uploading"
)

// RenderWorker renders one claimed job end to end.
type RenderWorker struct {
	store      *store.Store
	tts        *client.TTSRegistry
	catalog    client.MusicCatalog
	encoder    client.AudioEncoder
	storage    client.StorageClient
	hub        *websocket.Hub
	sampleRate int
	targetRMS  float64
	ceiling    float64
}

// NewRenderWorker creates a render worker. catalog, encoder, storage and hub
// may be nil; unconfigured dependencies fall back to mock behavior so the
// pipeline still runs end to end in development.
func NewRenderWorker(
	st *store.Store,
	tts *client.TTSRegistry,
	catalog client.MusicCatalog,
	encoder client.AudioEncoder,
	storage client.StorageClient,
	hub *websocket.Hub,
	sampleRate int,
	targetRMSDb float64,
	limiterCeilingDb float64,
) *RenderWorker {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &RenderWorker{
		store:      st,
		tts:        tts,
		catalog:    catalog,
		encoder:    encoder,
		storage:    storage,
		hub:        hub,
		sampleRate: sampleRate,
		targetRMS:  targetRMSDb,
		ceiling:    model.DbToLinear(limiterCeilingDb),
	}
}

// Process renders the job's payload and returns the artifact URL. The caller
// owns the claim; Process only writes progress checkpoints.
func (w *RenderWorker) Process(ctx context.Context, job *model.AudioJob) (string, error) {
	var payload model.RenderPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}

	durationSec := float64(payload.DurationMin) * 60

	w.checkpoint(ctx, job, 10, StageSynthesizing)
	voice, err := w.voiceLayer(ctx, &payload)
	if err != nil {
		return "", fmt.Errorf("voice synthesis: %w", err)
	}

	layers := audio.Layers{Voice: voice}
	if payload.HasMusic() {
		music, err := w.musicLayer(ctx, payload.BackgroundMusic, durationSec)
		if err != nil {
			return "", fmt.Errorf("background music: %w", err)
		}
		layers.Music = music
	}
	if payload.HasSolfeggio() {
		layers.Solfeggio = audio.SineTone(payload.Solfeggio.Hz, durationSec, w.sampleRate)
	}
	if payload.HasBinaural() {
		layers.Binaural = audio.BinauralTone(payload.Binaural.CarrierHz, payload.Binaural.BeatHz, durationSec, w.sampleRate)
	}

	w.checkpoint(ctx, job, 50, StageMixing)
	master, err := audio.MixLayers(layers, audio.MixParams{
		Gains:         payload.Gains,
		DurationSec:   durationSec,
		PauseSec:      payload.PauseSec,
		StartDelaySec: payload.StartDelaySec,
		LoopMode:      payload.LoopMode,
	})
	if err != nil {
		return "", fmt.Errorf("mix layers: %w", err)
	}

	w.checkpoint(ctx, job, 75, StageNormalizing)
	audio.Normalize(master, w.targetRMS)
	audio.Limit(master, w.ceiling)

	w.checkpoint(ctx, job, 85, StageEncoding)
	artifact, format, err := w.encode(ctx, master, payload.Output)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	w.checkpoint(ctx, job, 95, StageUploading)
	url, err := w.upload(ctx, job, artifact, format)
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	return url, nil
}

// voiceLayer synthesizes the narration through the configured provider, or
// generates a placeholder tone when no provider has credentials.
func (w *RenderWorker) voiceLayer(ctx context.Context, payload *model.RenderPayload) (*audio.Buffer, error) {
	provider, err := w.tts.Provider(payload.Voice.Provider)
	if err != nil {
		return nil, err
	}
	if !provider.IsConfigured() {
		log.Printf("TTS provider %s not configured, using placeholder narration", payload.Voice.Provider)
		return w.mockVoice(payload), nil
	}

	raw, err := provider.Synthesize(ctx, payload.Script, payload.Voice)
	if err != nil {
		return nil, err
	}
	buf, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("decode provider audio: %w", err)
	}
	return buf.Resample(w.sampleRate), nil
}

// mockVoice approximates spoken narration length at ~150 words per minute,
// scaled by the configured speed, as a quiet tone.
func (w *RenderWorker) mockVoice(payload *model.RenderPayload) *audio.Buffer {
	words := len(strings.Fields(payload.Script))
	if words == 0 {
		words = 1
	}
	speed := payload.Voice.Speed
	if speed <= 0 {
		speed = 1
	}
	durationSec := float64(words) / (150.0 * speed) * 60
	buf := audio.SineTone(220, durationSec, w.sampleRate)
	for i := range buf.Samples {
		buf.Samples[i] *= 0.4
	}
	return buf
}

func (w *RenderWorker) musicLayer(ctx context.Context, ref *model.MusicRef, durationSec float64) (*audio.Buffer, error) {
	if w.catalog == nil || !w.catalog.IsConfigured() {
		log.Printf("Music catalog not configured, using placeholder bed for %s", ref.ID)
		buf := audio.SineTone(110, durationSec, w.sampleRate)
		for i := range buf.Samples {
			buf.Samples[i] *= 0.3
		}
		return buf, nil
	}

	asset, err := w.catalog.Lookup(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	raw, err := w.catalog.FetchAsset(ctx, asset)
	if err != nil {
		return nil, err
	}
	buf, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("decode catalog asset: %w", err)
	}
	buf = buf.Resample(w.sampleRate)

	// Assets are delivered at full scale; the catalog's recommended level is
	// baked into the bed before the user's gain staging applies.
	if asset.VolumeDb != 0 {
		scale := model.DbToLinear(asset.VolumeDb)
		for i := range buf.Samples {
			buf.Samples[i] *= scale
		}
	}
	return buf, nil
}

// encode serializes the master buffer at the requested quality. MP3 goes
// through the encoder sidecar; when it is unavailable the artifact falls back
// to WAV so a render never fails on delivery format alone.
func (w *RenderWorker) encode(ctx context.Context, master *audio.Buffer, out model.OutputSettings) ([]byte, model.OutputFormat, error) {
	encodeRate := out.Quality.SampleRate()
	if encodeRate != master.SampleRate {
		master = master.Resample(encodeRate)
	}
	wavBytes := audio.EncodeWAV(master)

	if out.Format == model.OutputFormatMP3 {
		if w.encoder != nil && w.encoder.IsConfigured() {
			mp3Bytes, err := w.encoder.Encode(ctx, wavBytes, string(model.OutputFormatMP3), encodeRate)
			if err != nil {
				return nil, "", err
			}
			return mp3Bytes, model.OutputFormatMP3, nil
		}
		log.Printf("Encoder service not configured, delivering WAV instead of MP3")
	}
	return wavBytes, model.OutputFormatWAV, nil
}

func (w *RenderWorker) upload(ctx context.Context, job *model.AudioJob, artifact []byte, format model.OutputFormat) (string, error) {
	key := fmt.Sprintf("renders/%s/%s.%s", job.TrackID, job.ID, format)
	if w.storage == nil || !w.storage.IsConfigured() {
		return fmt.Sprintf("https://cdn.stillmind.app/%s", key), nil
	}

	contentType := "audio/wav"
	if format == model.OutputFormatMP3 {
		contentType = "audio/mpeg"
	}
	return w.storage.Upload(ctx, key, bytes.NewReader(artifact), contentType)
}

// checkpoint records a stage transition. The store write carries the lease
// start so a worker that lost its claim cannot overwrite the new claimant's
// progress.
func (w *RenderWorker) checkpoint(ctx context.Context, job *model.AudioJob, progress int, stage string) {
	if job.StartedAt != nil {
		if err := w.store.UpdateJobProgress(ctx, job.ID, *job.StartedAt, progress, stage); err != nil {
			log.Printf("Failed to update progress for job %s: %v", job.ID, err)
		}
	}
	if w.hub != nil {
		w.hub.BroadcastProgress(job.ID, progress, model.JobStatusProcessing, stage)
	}
}
