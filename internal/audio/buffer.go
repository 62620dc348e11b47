package audio

import "fmt"

// Buffer holds interleaved float64 samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// NewBuffer allocates a zeroed (silent) buffer of the given frame count.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float64, frames*channels),
	}
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// DurationSec returns the buffer length in seconds.
func (b *Buffer) DurationSec() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// ToStereo returns a stereo view of the buffer, duplicating a mono channel.
func (b *Buffer) ToStereo() *Buffer {
	if b.Channels == 2 {
		return b
	}
	out := NewBuffer(b.SampleRate, 2, b.Frames())
	for i := 0; i < b.Frames(); i++ {
		out.Samples[2*i] = b.Samples[i]
		out.Samples[2*i+1] = b.Samples[i]
	}
	return out
}

// LoopTo repeats the buffer until it covers the requested frame count,
// truncating the final repetition. An empty buffer yields silence.
func (b *Buffer) LoopTo(frames int) *Buffer {
	out := NewBuffer(b.SampleRate, b.Channels, frames)
	if len(b.Samples) == 0 {
		return out
	}
	for i := range out.Samples {
		out.Samples[i] = b.Samples[i%len(b.Samples)]
	}
	return out
}

// PadTo extends the buffer with trailing silence up to the requested frame
// count. Buffers already long enough are truncated.
func (b *Buffer) PadTo(frames int) *Buffer {
	out := NewBuffer(b.SampleRate, b.Channels, frames)
	copy(out.Samples, b.Samples)
	return out
}

// Resample converts the buffer to a new sample rate by linear interpolation.
func (b *Buffer) Resample(rate int) *Buffer {
	if rate == b.SampleRate || b.Frames() == 0 {
		cp := *b
		cp.SampleRate = rate
		return &cp
	}
	srcFrames := b.Frames()
	dstFrames := int(float64(srcFrames) * float64(rate) / float64(b.SampleRate))
	out := NewBuffer(rate, b.Channels, dstFrames)
	ratio := float64(srcFrames-1) / float64(max(dstFrames-1, 1))
	for i := 0; i < dstFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= srcFrames {
			next = srcFrames - 1
		}
		for ch := 0; ch < b.Channels; ch++ {
			a := b.Samples[idx*b.Channels+ch]
			c := b.Samples[next*b.Channels+ch]
			out.Samples[i*b.Channels+ch] = a + (c-a)*frac
		}
	}
	return out
}

// Append concatenates another buffer of the same shape.
func (b *Buffer) Append(other *Buffer) error {
	if other.SampleRate != b.SampleRate || other.Channels != b.Channels {
		return fmt.Errorf("append: shape mismatch (%d/%dch vs %d/%dch)",
			b.SampleRate, b.Channels, other.SampleRate, other.Channels)
	}
	b.Samples = append(b.Samples, other.Samples...)
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
