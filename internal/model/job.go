package model

import "time"

// AudioJob represents one render request in the durable queue.
type AudioJob struct {
	ID           string     `json:"id"`
	TrackID      string     `json:"trackId"`
	UserID       string     `json:"userId"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	Stage        string     `json:"stage,omitempty"`
	Payload      []byte     `json:"-"` // immutable render request, stored as JSON
	ErrorMessage string     `json:"error,omitempty"`
	OutputURL    string     `json:"outputUrl,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// VoiceSettings selects the TTS provider and delivery parameters.
type VoiceSettings struct {
	Provider TTSProvider `json:"provider" validate:"required,oneof=openai elevenlabs"`
	VoiceID  string      `json:"voiceId" validate:"required"`
	Model    string      `json:"model" validate:"required"`
	Speed    float64     `json:"speed" validate:"min=0.5,max=1.5"`
}

// MusicRef points at a catalog asset layered under the narration.
type MusicRef struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name,omitempty"`
	URL      string  `json:"url,omitempty"`
	VolumeDb float64 `json:"volumeDb" validate:"min=-24,max=0"`
}

// SolfeggioSettings configures the solfeggio tone layer.
type SolfeggioSettings struct {
	Hz       float64 `json:"hz" validate:"required"`
	VolumeDb float64 `json:"volumeDb" validate:"min=-30,max=-6"`
}

// BinauralSettings configures the binaural-beat layer. BeatHz of zero selects
// the midpoint of the band's range.
type BinauralSettings struct {
	Band      BinauralBand `json:"band" validate:"required,oneof=delta theta alpha beta gamma"`
	BeatHz    float64      `json:"beatHz,omitempty"`
	CarrierHz float64      `json:"carrierHz,omitempty"`
	VolumeDb  float64      `json:"volumeDb" validate:"min=-30,max=-6"`
}

// RenderPayload is the immutable rendering request stored on a job. The
// optional sub-objects double as the set of active layers: a nil pointer means
// the layer is absent and the mixer never generates it.
type RenderPayload struct {
	Script          string             `json:"script" validate:"required,min=1,max=20000"`
	Voice           VoiceSettings      `json:"voice" validate:"required"`
	DurationMin     int                `json:"durationMin" validate:"min=1,max=120"`
	PauseSec        float64            `json:"pauseSec" validate:"min=0,max=300"`
	LoopMode        LoopMode           `json:"loopMode" validate:"required,oneof=none repeat"`
	StartDelaySec   float64            `json:"startDelaySec" validate:"min=0,max=120"`
	BackgroundMusic *MusicRef          `json:"backgroundMusic,omitempty"`
	Solfeggio       *SolfeggioSettings `json:"solfeggio,omitempty"`
	Binaural        *BinauralSettings  `json:"binaural,omitempty"`
	Gains           GainSet            `json:"gains"`
	Output          OutputSettings     `json:"output"`
}

// OutputSettings selects the artifact encoding.
type OutputSettings struct {
	Format  OutputFormat `json:"format" validate:"required,oneof=wav mp3"`
	Quality QualityTier  `json:"quality" validate:"required,oneof=standard high"`
}

// HasMusic reports whether the background-music layer is active.
func (p *RenderPayload) HasMusic() bool { return p.BackgroundMusic != nil }

// HasSolfeggio reports whether the solfeggio layer is active.
func (p *RenderPayload) HasSolfeggio() bool { return p.Solfeggio != nil }

// HasBinaural reports whether the binaural layer is active.
func (p *RenderPayload) HasBinaural() bool { return p.Binaural != nil }
