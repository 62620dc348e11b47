package audio

import (
	"errors"
	"math"

	"github.com/stillmind/api/internal/model"
)

// Layers carries the generated buffers handed to the mixer. Voice is always
// present; the optional layers mirror the payload's active-layer set.
type Layers struct {
	Voice     *Buffer
	Music     *Buffer
	Solfeggio *Buffer
	Binaural  *Buffer
}

// MixParams controls timing, gain staging and mastering.
type MixParams struct {
	Gains          model.GainSet
	DurationSec    float64
	PauseSec       float64
	StartDelaySec  float64
	LoopMode       model.LoopMode
	TargetRMSDb    float64 // loudness normalization target, -16 dB RMS (LUFS equivalent)
	LimiterCeiling float64 // peak limiter ceiling as linear amplitude
}

// DefaultTargetRMSDb approximates a -16 LUFS mastering target.
const DefaultTargetRMSDb = -16.0

// DefaultLimiterCeiling is -1 dBFS expressed as linear amplitude.
var DefaultLimiterCeiling = model.DbToLinear(-1)

// Mix gain-stages, sums and masters the active layers into one stereo buffer.
// The voice program (start delay, loop/pause timing) is built first to fix the
// master duration; overlays are looped or padded to match, then summed,
// normalized and peak-limited.
func Mix(layers Layers, params MixParams) (*Buffer, error) {
	if params.TargetRMSDb == 0 {
		params.TargetRMSDb = DefaultTargetRMSDb
	}
	if params.LimiterCeiling == 0 {
		params.LimiterCeiling = DefaultLimiterCeiling
	}
	master, err := MixLayers(layers, params)
	if err != nil {
		return nil, err
	}
	Normalize(master, params.TargetRMSDb)
	Limit(master, params.LimiterCeiling)
	return master, nil
}

// MixLayers gain-stages and sums the layers without the mastering pass.
// Callers that report per-stage progress run Normalize and Limit themselves.
func MixLayers(layers Layers, params MixParams) (*Buffer, error) {
	if layers.Voice == nil || layers.Voice.Frames() == 0 {
		return nil, errors.New("mix: voice layer is required")
	}

	rate := layers.Voice.SampleRate
	program := buildVoiceProgram(layers.Voice.ToStereo(), params)
	frames := program.Frames()

	master := NewBuffer(rate, 2, frames)
	addScaled(master, program, model.DbToLinear(params.Gains.Voice+params.Gains.Master))

	if layers.Music != nil {
		overlay := alignOverlay(layers.Music, rate, frames)
		addScaled(master, overlay, model.DbToLinear(params.Gains.Music+params.Gains.Master))
	}
	if layers.Solfeggio != nil {
		overlay := alignOverlay(layers.Solfeggio, rate, frames)
		addScaled(master, overlay, model.DbToLinear(params.Gains.Solfeggio+params.Gains.Master))
	}
	if layers.Binaural != nil {
		overlay := alignOverlay(layers.Binaural, rate, frames)
		addScaled(master, overlay, model.DbToLinear(params.Gains.Binaural+params.Gains.Master))
	}

	return master, nil
}

// buildVoiceProgram prefixes the start-delay silence and, in repeat mode,
// repeats the narration with the configured pause until the target duration
// is covered. In single-shot mode the remainder is padded with silence.
func buildVoiceProgram(voice *Buffer, params MixParams) *Buffer {
	rate := voice.SampleRate
	targetFrames := int(params.DurationSec * float64(rate))

	program := Silence(params.StartDelaySec, rate, 2)
	_ = program.Append(voice)

	if params.LoopMode == model.LoopModeRepeat {
		pause := Silence(params.PauseSec, rate, 2)
		for program.Frames() < targetFrames {
			_ = program.Append(pause)
			_ = program.Append(voice)
		}
	}

	if targetFrames > 0 {
		return program.PadTo(targetFrames)
	}
	return program
}

// alignOverlay matches an overlay layer to the master's rate and length.
// Shorter layers loop; the sample-rate conversion happens first so frame
// counts line up.
func alignOverlay(layer *Buffer, rate, frames int) *Buffer {
	overlay := layer.Resample(rate).ToStereo()
	if overlay.Frames() < frames {
		return overlay.LoopTo(frames)
	}
	return overlay.PadTo(frames)
}

func addScaled(dst, src *Buffer, gain float64) {
	n := len(dst.Samples)
	if len(src.Samples) < n {
		n = len(src.Samples)
	}
	for i := 0; i < n; i++ {
		dst.Samples[i] += src.Samples[i] * gain
	}
}

// RMSDb returns the buffer's RMS level in dB. Silent buffers report -96 dB.
func RMSDb(buf *Buffer) float64 {
	if len(buf.Samples) == 0 {
		return -96
	}
	var sum float64
	for _, s := range buf.Samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(buf.Samples)))
	if rms <= 0 {
		return -96
	}
	return 20 * math.Log10(rms)
}

// Normalize scales the buffer so its RMS level matches targetDb.
func Normalize(buf *Buffer, targetDb float64) {
	current := RMSDb(buf)
	if current <= -96 {
		return
	}
	gain := model.DbToLinear(targetDb - current)
	for i := range buf.Samples {
		buf.Samples[i] *= gain
	}
}

// Limit clamps every sample into [-ceiling, ceiling]. This is the safety net
// behind the submission-time gain-sum warning.
func Limit(buf *Buffer, ceiling float64) {
	for i, s := range buf.Samples {
		if s > ceiling {
			buf.Samples[i] = ceiling
		} else if s < -ceiling {
			buf.Samples[i] = -ceiling
		}
	}
}

// Peak returns the maximum absolute sample value.
func Peak(buf *Buffer) float64 {
	var peak float64
	for _, s := range buf.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}
