package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stillmind/api/internal/model"
	"github.com/stillmind/api/internal/store"
)

// EditService coordinates the edit/re-render workflow: ownership and payment
// gating, the write-once original-config snapshot, config merging and the
// re-render enqueue.
type EditService struct {
	store     *store.Store
	freeLimit int
	feeCents  int
}

func NewEditService(st *store.Store, freeLimit, feeCents int) *EditService {
	return &EditService{
		store:     st,
		freeLimit: freeLimit,
		feeCents:  feeCents,
	}
}

// RequestEdit merges an edit into the track's configuration and enqueues a
// re-render job.
func (s *EditService) RequestEdit(ctx context.Context, trackID, userID string, req *model.EditRequest) (*model.EditResponse, error) {
	track, err := s.store.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track.UserID != userID {
		return nil, ErrNotOwner
	}
	if track.Status == model.TrackStatusArchived {
		return nil, ErrTrackArchived
	}
	if track.EditCount >= s.freeLimit && req.PaymentToken == "" {
		return nil, ErrPaymentRequired
	}

	// The snapshot happens on the first edit only; after that the stored
	// original is never touched, so the pre-edit state stays recoverable.
	if track.OriginalConfig == nil {
		snapshot := track.Config.Clone()
		track.OriginalConfig = &snapshot
	}

	warnings, err := mergeEdits(track, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	track.EditCount++
	track.Status = model.TrackStatusDraft
	if err := s.store.UpdateTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("persist merged config: %w", err)
	}

	payload := track.RenderPayload()
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	job, err := s.store.Enqueue(ctx, track.ID, userID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("enqueue re-render job: %w", err)
	}

	if err := s.store.SetTrackStatus(ctx, track.ID, model.TrackStatusRendering); err != nil {
		return nil, fmt.Errorf("set track rendering: %w", err)
	}

	return &model.EditResponse{
		TrackID:   track.ID,
		JobID:     job.ID,
		EditCount: track.EditCount,
		Status:    job.Status,
		Warnings:  warnings,
	}, nil
}

// Eligibility answers the UI's pre-edit query, including the outcome of the
// track's most recent render so a failure message is visible up front.
func (s *EditService) Eligibility(ctx context.Context, trackID, userID string) (*model.EditEligibilityResponse, error) {
	track, err := s.store.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track.UserID != userID {
		return nil, ErrNotOwner
	}

	resp := &model.EditEligibilityResponse{
		EditCount: track.EditCount,
	}
	if job, err := s.store.LatestJobForTrack(ctx, trackID); err != nil {
		return nil, fmt.Errorf("latest job: %w", err)
	} else if job != nil {
		resp.LastJobStatus = job.Status
		resp.LastJobError = job.ErrorMessage
	}
	if track.Status == model.TrackStatusArchived {
		resp.CanEdit = false
		resp.Reason = "track is archived"
		return resp, nil
	}

	remaining := s.freeLimit - track.EditCount
	if remaining < 0 {
		remaining = 0
	}
	resp.CanEdit = true
	resp.FreeEditsRemaining = remaining
	if remaining == 0 {
		resp.TotalFeeCents = s.feeCents
	}
	return resp, nil
}

// mergeEdits folds the partial edit into the current config. Unspecified
// fields keep their current values. Disabling a frequency layer nulls out its
// config entirely so the mixer never generates it. Returns clipping warnings
// for the merged gain set.
func mergeEdits(track *model.Track, req *model.EditRequest) ([]string, error) {
	if req.Script != nil {
		track.Script = *req.Script
	}
	if req.VoiceSpeed != nil {
		track.Config.Voice.Speed = *req.VoiceSpeed
	}
	if req.VoiceID != nil {
		track.Config.Voice.VoiceID = *req.VoiceID
	}
	if req.DurationMin != nil {
		track.Config.Output.DurationMin = *req.DurationMin
	}
	if req.PauseSec != nil {
		track.Config.Output.PauseSec = *req.PauseSec
	}
	if req.LoopMode != nil {
		track.Config.Output.LoopMode = *req.LoopMode
	}
	if req.StartDelaySec != nil {
		track.Config.Output.StartDelaySec = *req.StartDelaySec
	}

	switch {
	case req.DisableMusic:
		track.Config.Music = nil
	case req.BackgroundMusic != nil:
		m := *req.BackgroundMusic
		track.Config.Music = &m
		// The layer's volumeDb seeds its gain stage; an explicit gain set in
		// the same edit overrides it below.
		if m.VolumeDb != 0 {
			track.Config.Gains.Music = m.VolumeDb
		}
	}

	if req.DisableSolfeggio || req.Solfeggio != nil || req.DisableBinaural || req.Binaural != nil {
		freq := model.FrequencyConfig{}
		if track.Config.Frequency != nil {
			freq = *track.Config.Frequency
		}
		switch {
		case req.DisableSolfeggio:
			freq.Solfeggio = nil
		case req.Solfeggio != nil:
			if _, ok := model.LookupSolfeggio(req.Solfeggio.Hz); !ok {
				return nil, fmt.Errorf("unknown solfeggio frequency %.0f Hz", req.Solfeggio.Hz)
			}
			sol := *req.Solfeggio
			freq.Solfeggio = &sol
			if sol.VolumeDb != 0 {
				track.Config.Gains.Solfeggio = sol.VolumeDb
			}
		}
		switch {
		case req.DisableBinaural:
			freq.Binaural = nil
		case req.Binaural != nil:
			bin := *req.Binaural
			if err := normalizeBinaural(&bin); err != nil {
				return nil, err
			}
			freq.Binaural = &bin
			if bin.VolumeDb != 0 {
				track.Config.Gains.Binaural = bin.VolumeDb
			}
		}
		if freq.Solfeggio == nil && freq.Binaural == nil {
			track.Config.Frequency = nil
		} else {
			track.Config.Frequency = &freq
		}
	}

	if req.Gains != nil {
		track.Config.Gains = *req.Gains
	}

	var solActive, binActive bool
	if track.Config.Frequency != nil {
		solActive = track.Config.Frequency.Solfeggio != nil
		binActive = track.Config.Frequency.Binaural != nil
	}
	return track.Config.Gains.ClippingWarnings(track.Config.Music != nil, solActive, binActive), nil
}
