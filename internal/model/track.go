package model

import "time"

// FrequencyConfig groups the optional tone layers on a track.
type FrequencyConfig struct {
	Solfeggio *SolfeggioSettings `json:"solfeggio,omitempty"`
	Binaural  *BinauralSettings  `json:"binaural,omitempty"`
}

// OutputConfig holds the rendering/timing options for a track.
type OutputConfig struct {
	Format        OutputFormat `json:"format" validate:"required,oneof=wav mp3"`
	Quality       QualityTier  `json:"quality" validate:"required,oneof=standard high"`
	DurationMin   int          `json:"durationMin" validate:"min=1,max=120"`
	LoopMode      LoopMode     `json:"loopMode" validate:"required,oneof=none repeat"`
	PauseSec      float64      `json:"pauseSec" validate:"min=0,max=300"`
	StartDelaySec float64      `json:"startDelaySec" validate:"min=0,max=120"`
}

// TrackConfig is the editable configuration of a track. A snapshot of it is
// written to Track.OriginalConfig on the first edit.
type TrackConfig struct {
	Voice     VoiceSettings    `json:"voice"`
	Music     *MusicRef        `json:"music,omitempty"`
	Frequency *FrequencyConfig `json:"frequency,omitempty"`
	Output    OutputConfig     `json:"output"`
	Gains     GainSet          `json:"gains"`
}

// Track is a user's affirmation track and its current configuration.
type Track struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Title          string       `json:"title"`
	Script         string       `json:"script"`
	Config         TrackConfig  `json:"config"`
	Status         TrackStatus  `json:"status"`
	EditCount      int          `json:"editCount"`
	OriginalConfig *TrackConfig `json:"originalConfig,omitempty"`
	OutputURL      string       `json:"outputUrl,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// RenderPayload assembles the immutable job payload from the track's current
// script and configuration.
func (t *Track) RenderPayload() RenderPayload {
	payload := RenderPayload{
		Script:        t.Script,
		Voice:         t.Config.Voice,
		DurationMin:   t.Config.Output.DurationMin,
		PauseSec:      t.Config.Output.PauseSec,
		LoopMode:      t.Config.Output.LoopMode,
		StartDelaySec: t.Config.Output.StartDelaySec,
		Gains:         t.Config.Gains,
		Output: OutputSettings{
			Format:  t.Config.Output.Format,
			Quality: t.Config.Output.Quality,
		},
	}
	if t.Config.Music != nil {
		m := *t.Config.Music
		payload.BackgroundMusic = &m
	}
	if t.Config.Frequency != nil {
		if t.Config.Frequency.Solfeggio != nil {
			s := *t.Config.Frequency.Solfeggio
			payload.Solfeggio = &s
		}
		if t.Config.Frequency.Binaural != nil {
			b := *t.Config.Frequency.Binaural
			payload.Binaural = &b
		}
	}
	return payload
}

// Clone returns a deep copy of the configuration, used for the first-edit
// snapshot so later merges cannot reach back into it.
func (c TrackConfig) Clone() TrackConfig {
	out := c
	if c.Music != nil {
		m := *c.Music
		out.Music = &m
	}
	if c.Frequency != nil {
		f := FrequencyConfig{}
		if c.Frequency.Solfeggio != nil {
			s := *c.Frequency.Solfeggio
			f.Solfeggio = &s
		}
		if c.Frequency.Binaural != nil {
			b := *c.Frequency.Binaural
			f.Binaural = &b
		}
		out.Frequency = &f
	}
	return out
}
