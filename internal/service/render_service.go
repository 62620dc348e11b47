package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stillmind/api/internal/model"
	"github.com/stillmind/api/internal/store"
)

// RenderService validates submissions and enqueues render jobs.
type RenderService struct {
	store *store.Store
}

func NewRenderService(st *store.Store) *RenderService {
	return &RenderService{store: st}
}

// CreateTrack validates the submission, persists the track and enqueues the
// initial render job. Clipping-risk warnings are returned alongside success;
// they never block the submission.
func (s *RenderService) CreateTrack(ctx context.Context, userID string, req *model.CreateTrackRequest) (*model.CreateTrackResponse, error) {
	cfg, warnings, err := buildTrackConfig(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	track, err := s.store.CreateTrack(ctx, userID, req.Title, req.Script, cfg)
	if err != nil {
		return nil, fmt.Errorf("create track: %w", err)
	}

	payload := track.RenderPayload()
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	job, err := s.store.Enqueue(ctx, track.ID, userID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("enqueue render job: %w", err)
	}

	if err := s.store.SetTrackStatus(ctx, track.ID, model.TrackStatusRendering); err != nil {
		return nil, fmt.Errorf("set track rendering: %w", err)
	}

	return &model.CreateTrackResponse{
		TrackID:   track.ID,
		JobID:     job.ID,
		Status:    job.Status,
		Warnings:  warnings,
		CreatedAt: job.CreatedAt,
	}, nil
}

// GetTrack fetches a track, enforcing ownership.
func (s *RenderService) GetTrack(ctx context.Context, trackID, userID string) (*model.Track, error) {
	track, err := s.store.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track.UserID != userID {
		return nil, ErrNotOwner
	}
	return track, nil
}

// GetJobStatus reports queue progress for a job, enforcing ownership.
func (s *RenderService) GetJobStatus(ctx context.Context, jobID, userID string) (*model.JobStatusResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrNotOwner
	}
	return &model.JobStatusResponse{
		JobID:    job.ID,
		TrackID:  job.TrackID,
		Status:   job.Status,
		Progress: job.Progress,
		Stage:    job.Stage,
		Error:    job.ErrorMessage,
	}, nil
}

// GetJobResult returns the artifact of a completed job, enforcing ownership.
func (s *RenderService) GetJobResult(ctx context.Context, jobID, userID string) (*model.JobResultResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrNotOwner
	}
	if job.Status != model.JobStatusCompleted {
		return nil, ErrJobNotCompleted
	}
	return &model.JobResultResponse{
		JobID:       job.ID,
		TrackID:     job.TrackID,
		OutputURL:   job.OutputURL,
		CompletedAt: job.UpdatedAt,
	}, nil
}

// buildTrackConfig normalizes a submission into a track configuration,
// resolving frequency-layer defaults and collecting clipping-risk warnings.
func buildTrackConfig(req *model.CreateTrackRequest) (model.TrackConfig, []string, error) {
	// Each layer's volumeDb seeds its gain stage; an explicit gain set
	// overrides the lot.
	gains := model.DefaultGains()
	if req.BackgroundMusic != nil && req.BackgroundMusic.VolumeDb != 0 {
		gains.Music = req.BackgroundMusic.VolumeDb
	}
	if req.Solfeggio != nil && req.Solfeggio.VolumeDb != 0 {
		gains.Solfeggio = req.Solfeggio.VolumeDb
	}
	if req.Binaural != nil && req.Binaural.VolumeDb != 0 {
		gains.Binaural = req.Binaural.VolumeDb
	}
	if req.Gains != nil {
		gains = *req.Gains
	}

	cfg := model.TrackConfig{
		Voice: req.Voice,
		Gains: gains,
		Output: model.OutputConfig{
			Format:        req.Output.Format,
			Quality:       req.Output.Quality,
			DurationMin:   req.DurationMin,
			LoopMode:      req.LoopMode,
			PauseSec:      req.PauseSec,
			StartDelaySec: req.StartDelaySec,
		},
	}

	if req.BackgroundMusic != nil {
		m := *req.BackgroundMusic
		cfg.Music = &m
	}

	var freq model.FrequencyConfig
	if req.Solfeggio != nil {
		if _, ok := model.LookupSolfeggio(req.Solfeggio.Hz); !ok {
			return model.TrackConfig{}, nil, fmt.Errorf("unknown solfeggio frequency %.0f Hz", req.Solfeggio.Hz)
		}
		sol := *req.Solfeggio
		freq.Solfeggio = &sol
	}
	if req.Binaural != nil {
		bin := *req.Binaural
		if err := normalizeBinaural(&bin); err != nil {
			return model.TrackConfig{}, nil, err
		}
		freq.Binaural = &bin
	}
	if freq.Solfeggio != nil || freq.Binaural != nil {
		cfg.Frequency = &freq
	}

	warnings := gains.ClippingWarnings(cfg.Music != nil, freq.Solfeggio != nil, freq.Binaural != nil)
	return cfg, warnings, nil
}

// normalizeBinaural fills beat/carrier defaults and rejects a beat frequency
// outside the selected band's declared range.
func normalizeBinaural(bin *model.BinauralSettings) error {
	bandRange, err := model.BandRange(bin.Band)
	if err != nil {
		return err
	}
	if bin.BeatHz == 0 {
		beat, err := model.DefaultBeatHz(bin.Band)
		if err != nil {
			return err
		}
		bin.BeatHz = beat
	}
	if !bandRange.Contains(bin.BeatHz) {
		return fmt.Errorf("beat frequency %.1f Hz outside %s band range %.1f-%.1f Hz",
			bin.BeatHz, bin.Band, bandRange.MinHz, bandRange.MaxHz)
	}
	if bin.CarrierHz == 0 {
		bin.CarrierHz = model.DefaultCarrierHz
	}
	return nil
}
