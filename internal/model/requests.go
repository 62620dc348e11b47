package model

import "time"

// CreateTrackRequest is the submission contract from the web/app layer.
type CreateTrackRequest struct {
	Title           string             `json:"title" validate:"required,min=1,max=200"`
	Script          string             `json:"script" validate:"required,min=1,max=20000"`
	Voice           VoiceSettings      `json:"voice" validate:"required"`
	DurationMin     int                `json:"durationMin" validate:"min=1,max=120"`
	PauseSec        float64            `json:"pauseSec" validate:"min=0,max=300"`
	LoopMode        LoopMode           `json:"loopMode" validate:"required,oneof=none repeat"`
	StartDelaySec   float64            `json:"startDelaySec" validate:"min=0,max=120"`
	BackgroundMusic *MusicRef          `json:"backgroundMusic" validate:"omitempty"`
	Solfeggio       *SolfeggioSettings `json:"solfeggio" validate:"omitempty"`
	Binaural        *BinauralSettings  `json:"binaural" validate:"omitempty"`
	Gains           *GainSet           `json:"gains" validate:"omitempty"`
	Output          OutputSettings     `json:"output" validate:"required"`
}

// CreateTrackResponse acknowledges a submission before rendering begins.
type CreateTrackResponse struct {
	TrackID   string    `json:"trackId"`
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse reports queue progress for one job.
type JobStatusResponse struct {
	JobID    string    `json:"jobId"`
	TrackID  string    `json:"trackId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Stage    string    `json:"stage,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// JobResultResponse carries the artifact of a completed job.
type JobResultResponse struct {
	JobID       string    `json:"jobId"`
	TrackID     string    `json:"trackId"`
	OutputURL   string    `json:"outputUrl"`
	CompletedAt time.Time `json:"completedAt"`
}

// EditRequest carries partial changes against a rendered track. Nil fields
// keep their current values. DisableSolfeggio/DisableBinaural/DisableMusic
// remove the layer entirely rather than muting it.
type EditRequest struct {
	Script           *string            `json:"script" validate:"omitempty,min=1,max=20000"`
	VoiceSpeed       *float64           `json:"voiceSpeed" validate:"omitempty,min=0.5,max=1.5"`
	VoiceID          *string            `json:"voiceId" validate:"omitempty"`
	DurationMin      *int               `json:"durationMin" validate:"omitempty,min=1,max=120"`
	PauseSec         *float64           `json:"pauseSec" validate:"omitempty,min=0,max=300"`
	LoopMode         *LoopMode          `json:"loopMode" validate:"omitempty,oneof=none repeat"`
	StartDelaySec    *float64           `json:"startDelaySec" validate:"omitempty,min=0,max=120"`
	BackgroundMusic  *MusicRef          `json:"backgroundMusic" validate:"omitempty"`
	DisableMusic     bool               `json:"disableMusic"`
	Solfeggio        *SolfeggioSettings `json:"solfeggio" validate:"omitempty"`
	DisableSolfeggio bool               `json:"disableSolfeggio"`
	Binaural         *BinauralSettings  `json:"binaural" validate:"omitempty"`
	DisableBinaural  bool               `json:"disableBinaural"`
	Gains            *GainSet           `json:"gains" validate:"omitempty"`
	PaymentToken     string             `json:"paymentToken"`
}

// EditResponse acknowledges an accepted edit and the re-render job it queued.
type EditResponse struct {
	TrackID   string    `json:"trackId"`
	JobID     string    `json:"jobId"`
	EditCount int       `json:"editCount"`
	Status    JobStatus `json:"status"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// EditEligibilityResponse tells the UI whether an edit needs payment, and
// surfaces the latest render outcome so a failed job's message is visible
// before the user pays for another attempt.
type EditEligibilityResponse struct {
	CanEdit            bool      `json:"canEdit"`
	EditCount          int       `json:"editCount"`
	FreeEditsRemaining int       `json:"freeEditsRemaining"`
	TotalFeeCents      int       `json:"totalFeeCents"`
	Reason             string    `json:"reason,omitempty"`
	LastJobStatus      JobStatus `json:"lastJobStatus,omitempty"`
	LastJobError       string    `json:"lastJobError,omitempty"`
}

// DispatchJobResult is the per-job outcome of one dispatch cycle.
type DispatchJobResult struct {
	JobID     string    `json:"jobId"`
	TrackID   string    `json:"trackId"`
	Status    JobStatus `json:"status"`
	OutputURL string    `json:"outputUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DispatchResponse summarizes one worker invocation.
type DispatchResponse struct {
	Processed  int                 `json:"processed"`
	Pending    int                 `json:"pending"`
	StuckReset int                 `json:"stuck_reset"`
	Results    []DispatchJobResult `json:"results"`
}
