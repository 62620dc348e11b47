package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Track status
type TrackStatus string

const (
	TrackStatusDraft     TrackStatus = "draft"
	TrackStatusRendering TrackStatus = "rendering"
	TrackStatusPublished TrackStatus = "published"
	TrackStatusArchived  TrackStatus = "archived"
)

// TTS providers
type TTSProvider string

const (
	TTSProviderOpenAI     TTSProvider = "openai"
	TTSProviderElevenLabs TTSProvider = "elevenlabs"
)

// Loop modes
type LoopMode string

const (
	LoopModeNone   LoopMode = "none"
	LoopModeRepeat LoopMode = "repeat"
)

// Output formats
type OutputFormat string

const (
	OutputFormatWAV OutputFormat = "wav"
	OutputFormatMP3 OutputFormat = "mp3"
)

// Quality tiers map to encoder sample rates
type QualityTier string

const (
	QualityStandard QualityTier = "standard"
	QualityHigh     QualityTier = "high"
)

// SampleRate returns the encoder sample rate for a quality tier.
func (q QualityTier) SampleRate() int {
	if q == QualityStandard {
		return 22050
	}
	return 44100
}
