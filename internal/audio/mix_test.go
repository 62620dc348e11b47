package audio

import (
	"math"
	"testing"

	"github.com/stillmind/api/internal/model"
)

func testGains() model.GainSet {
	return model.GainSet{Master: 0, Voice: 0, Music: -12, Solfeggio: -18, Binaural: -18}
}

func TestMixLayersRequiresVoice(t *testing.T) {
	_, err := MixLayers(Layers{}, MixParams{Gains: testGains()})
	if err == nil {
		t.Fatal("expected error for missing voice layer")
	}
}

func TestMixLayersDurationFromParams(t *testing.T) {
	voice := SineTone(220, 2.0, 8000)
	master, err := MixLayers(Layers{Voice: voice}, MixParams{
		Gains:       testGains(),
		DurationSec: 5.0,
	})
	if err != nil {
		t.Fatalf("MixLayers failed: %v", err)
	}
	if master.Channels != 2 {
		t.Errorf("expected stereo master, got %d channels", master.Channels)
	}
	if master.Frames() != 5*8000 {
		t.Errorf("expected %d frames, got %d", 5*8000, master.Frames())
	}
}

func TestMixLayersStartDelay(t *testing.T) {
	voice := SineTone(220, 1.0, 8000)
	master, err := MixLayers(Layers{Voice: voice}, MixParams{
		Gains:         testGains(),
		DurationSec:   3.0,
		StartDelaySec: 1.0,
	})
	if err != nil {
		t.Fatalf("MixLayers failed: %v", err)
	}

	// The first second is silence.
	for i := 0; i < 8000*2; i++ {
		if master.Samples[i] != 0 {
			t.Fatalf("expected silence during start delay, sample %d = %f", i, master.Samples[i])
		}
	}
	// The narration follows.
	if RMSDb(slice(master, 1.0, 2.0)) < -40 {
		t.Error("expected narration after start delay")
	}
}

func TestMixLayersRepeatFillsDuration(t *testing.T) {
	voice := SineTone(220, 1.0, 8000)
	master, err := MixLayers(Layers{Voice: voice}, MixParams{
		Gains:       testGains(),
		DurationSec: 6.0,
		PauseSec:    1.0,
		LoopMode:    model.LoopModeRepeat,
	})
	if err != nil {
		t.Fatalf("MixLayers failed: %v", err)
	}
	if master.Frames() != 6*8000 {
		t.Fatalf("expected %d frames, got %d", 6*8000, master.Frames())
	}

	// Narration at 0-1s, pause at 1-2s, narration again at 2-3s.
	if RMSDb(slice(master, 0.2, 0.8)) < -40 {
		t.Error("expected narration in first repetition")
	}
	if RMSDb(slice(master, 1.2, 1.8)) > -90 {
		t.Error("expected silence during pause")
	}
	if RMSDb(slice(master, 2.2, 2.8)) < -40 {
		t.Error("expected narration in second repetition")
	}
}

func TestMixLayersSingleShotPadsRemainder(t *testing.T) {
	voice := SineTone(220, 1.0, 8000)
	master, err := MixLayers(Layers{Voice: voice}, MixParams{
		Gains:       testGains(),
		DurationSec: 3.0,
		LoopMode:    model.LoopModeNone,
	})
	if err != nil {
		t.Fatalf("MixLayers failed: %v", err)
	}
	if RMSDb(slice(master, 1.5, 3.0)) > -90 {
		t.Error("expected trailing silence in single-shot mode")
	}
}

func TestMixLayersGainScaling(t *testing.T) {
	mixAt := func(voiceDb float64) float64 {
		voice := SineTone(220, 1.0, 8000)
		gains := testGains()
		gains.Voice = voiceDb
		master, err := MixLayers(Layers{Voice: voice}, MixParams{
			Gains:       gains,
			DurationSec: 1.0,
		})
		if err != nil {
			t.Fatalf("MixLayers failed: %v", err)
		}
		return RMSDb(master)
	}

	base := mixAt(0)
	quieter := mixAt(-6)
	diff := base - quieter
	if math.Abs(diff-6.0) > 0.1 {
		t.Errorf("expected 6 dB difference, got %.2f dB", diff)
	}
}

func TestMixLayersOverlayLoops(t *testing.T) {
	voice := SineTone(220, 4.0, 8000)
	music := SineTone(110, 1.0, 8000) // shorter than the program, must loop

	master, err := MixLayers(Layers{Voice: voice, Music: music}, MixParams{
		Gains:       testGains(),
		DurationSec: 4.0,
	})
	if err != nil {
		t.Fatalf("MixLayers failed: %v", err)
	}
	// Music must still be audible in the final second.
	if RMSDb(slice(master, 3.2, 3.8)) < -40 {
		t.Error("expected looped music bed near the end")
	}
}

func TestNormalizeHitsTarget(t *testing.T) {
	buf := SineTone(220, 1.0, 8000)
	for i := range buf.Samples {
		buf.Samples[i] *= 0.05
	}
	Normalize(buf, -16.0)

	got := RMSDb(buf)
	if math.Abs(got-(-16.0)) > 0.1 {
		t.Errorf("expected -16 dB RMS, got %.2f dB", got)
	}
}

func TestNormalizeLeavesSilenceAlone(t *testing.T) {
	buf := Silence(1.0, 8000, 2)
	Normalize(buf, -16.0)
	for _, s := range buf.Samples {
		if s != 0 {
			t.Fatal("normalized silence is no longer silent")
		}
	}
}

func TestLimitCeiling(t *testing.T) {
	buf := SineTone(220, 1.0, 8000)
	for i := range buf.Samples {
		buf.Samples[i] *= 3.0
	}
	ceiling := model.DbToLinear(-1)
	Limit(buf, ceiling)

	if peak := Peak(buf); peak > ceiling+1e-9 {
		t.Errorf("peak %.4f exceeds ceiling %.4f", peak, ceiling)
	}
}

func TestMixFullContract(t *testing.T) {
	voice := SineTone(220, 2.0, 8000)
	sol := SineTone(528, 2.0, 8000)
	bin := BinauralTone(200, 6, 2.0, 8000)

	master, err := Mix(Layers{Voice: voice, Solfeggio: sol, Binaural: bin}, MixParams{
		Gains:       testGains(),
		DurationSec: 2.0,
	})
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	rms := RMSDb(master)
	if math.Abs(rms-DefaultTargetRMSDb) > 1.0 {
		t.Errorf("expected ~%.0f dB RMS after mastering, got %.2f dB", DefaultTargetRMSDb, rms)
	}
	if peak := Peak(master); peak > DefaultLimiterCeiling+1e-9 {
		t.Errorf("peak %.4f exceeds limiter ceiling %.4f", peak, DefaultLimiterCeiling)
	}
}

// slice extracts the [fromSec, toSec) window as a standalone buffer.
func slice(buf *Buffer, fromSec, toSec float64) *Buffer {
	from := int(fromSec*float64(buf.SampleRate)) * buf.Channels
	to := int(toSec*float64(buf.SampleRate)) * buf.Channels
	return &Buffer{
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		Samples:    buf.Samples[from:to],
	}
}
