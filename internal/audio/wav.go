package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// EncodeWAV serializes a buffer as 16-bit PCM WAV.
func EncodeWAV(buf *Buffer) []byte {
	dataSize := len(buf.Samples) * 2
	out := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	byteRate := buf.SampleRate * buf.Channels * 2
	blockAlign := buf.Channels * 2

	out.WriteString("RIFF")
	binary.Write(out, binary.LittleEndian, uint32(36+dataSize))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	binary.Write(out, binary.LittleEndian, uint32(16))
	binary.Write(out, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(out, binary.LittleEndian, uint16(buf.Channels))
	binary.Write(out, binary.LittleEndian, uint32(buf.SampleRate))
	binary.Write(out, binary.LittleEndian, uint32(byteRate))
	binary.Write(out, binary.LittleEndian, uint16(blockAlign))
	binary.Write(out, binary.LittleEndian, uint16(16))
	out.WriteString("data")
	binary.Write(out, binary.LittleEndian, uint32(dataSize))

	for _, s := range buf.Samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.Write(out, binary.LittleEndian, int16(math.Round(v*32767)))
	}
	return out.Bytes()
}

// DecodeWAV parses a 16-bit PCM WAV file into a buffer. Chunks other than
// fmt and data are skipped.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("decode wav: not a RIFF/WAVE file")
	}

	var (
		channels   int
		sampleRate int
		bitDepth   int
		pcm        []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, errors.New("decode wav: truncated fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("decode wav: unsupported format %d (PCM only)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// chunks are word-aligned
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, errors.New("decode wav: missing fmt chunk")
	}
	if bitDepth != 16 {
		return nil, fmt.Errorf("decode wav: unsupported bit depth %d", bitDepth)
	}
	if pcm == nil {
		return nil, errors.New("decode wav: missing data chunk")
	}

	frames := len(pcm) / 2 / channels
	buf := NewBuffer(sampleRate, channels, frames)
	for i := 0; i < frames*channels; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i : 2*i+2]))
		buf.Samples[i] = float64(v) / 32768
	}
	return buf, nil
}
