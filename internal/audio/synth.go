package audio

import "math"

// fadeSec is the attack/release ramp applied to synthesized tones so loop
// boundaries and track edges do not click.
const fadeSec = 0.05

// SineTone generates a mono sine wave at the given frequency.
func SineTone(freqHz float64, durationSec float64, sampleRate int) *Buffer {
	frames := int(durationSec * float64(sampleRate))
	buf := NewBuffer(sampleRate, 1, frames)
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := 0; i < frames; i++ {
		buf.Samples[i] = math.Sin(step * float64(i))
	}
	applyFade(buf)
	return buf
}

// BinauralTone generates a stereo buffer with the carrier in the left channel
// and carrier+beat in the right. The perceived beat frequency is exactly
// beatHz, the difference between the two channels.
func BinauralTone(carrierHz, beatHz float64, durationSec float64, sampleRate int) *Buffer {
	frames := int(durationSec * float64(sampleRate))
	buf := NewBuffer(sampleRate, 2, frames)
	leftStep := 2 * math.Pi * carrierHz / float64(sampleRate)
	rightStep := 2 * math.Pi * (carrierHz + beatHz) / float64(sampleRate)
	for i := 0; i < frames; i++ {
		buf.Samples[2*i] = math.Sin(leftStep * float64(i))
		buf.Samples[2*i+1] = math.Sin(rightStep * float64(i))
	}
	applyFade(buf)
	return buf
}

// Silence generates a zeroed buffer of the given duration.
func Silence(durationSec float64, sampleRate, channels int) *Buffer {
	return NewBuffer(sampleRate, channels, int(durationSec*float64(sampleRate)))
}

func applyFade(buf *Buffer) {
	frames := buf.Frames()
	fadeFrames := int(fadeSec * float64(buf.SampleRate))
	if fadeFrames*2 > frames {
		fadeFrames = frames / 2
	}
	for i := 0; i < fadeFrames; i++ {
		gain := float64(i) / float64(fadeFrames)
		for ch := 0; ch < buf.Channels; ch++ {
			buf.Samples[i*buf.Channels+ch] *= gain
			buf.Samples[(frames-1-i)*buf.Channels+ch] *= gain
		}
	}
}
