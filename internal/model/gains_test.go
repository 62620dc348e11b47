package model

import (
	"math"
	"strings"
	"testing"
)

func TestDbToLinear(t *testing.T) {
	cases := []struct {
		db   float64
		want float64
	}{
		{0, 1.0},
		{-6, 0.5012},
		{-20, 0.1},
		{6, 1.9953},
	}
	for _, tc := range cases {
		got := DbToLinear(tc.db)
		if math.Abs(got-tc.want) > 0.001 {
			t.Errorf("DbToLinear(%v) = %v, want ~%v", tc.db, got, tc.want)
		}
	}
}

func TestClippingWarningsDefaultsAreClean(t *testing.T) {
	warnings := DefaultGains().ClippingWarnings(true, true, true)
	if len(warnings) != 0 {
		t.Errorf("default gains should not warn, got %v", warnings)
	}
}

func TestClippingWarningsFlagsHotLayerSum(t *testing.T) {
	g := GainSet{Master: 3, Voice: 2, Music: -12, Solfeggio: -18, Binaural: -18}
	warnings := g.ClippingWarnings(true, true, true)
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "voice") {
		t.Errorf("expected voice warning, got %q", warnings[0])
	}
}

func TestClippingWarningsIgnoresInactiveLayers(t *testing.T) {
	// Music would be over the threshold, but the layer is inactive.
	g := GainSet{Master: 3, Voice: 0, Music: 2, Solfeggio: -18, Binaural: -18}
	warnings := g.ClippingWarnings(false, false, false)
	for _, w := range warnings {
		if strings.Contains(w, "music") {
			t.Errorf("inactive music layer should not warn: %q", w)
		}
	}
}

func TestClippingWarningsThresholdIsExclusive(t *testing.T) {
	// Exactly 3 dB is allowed; warnings start above it.
	g := GainSet{Master: 0, Voice: 3, Music: -12, Solfeggio: -18, Binaural: -18}
	if warnings := g.ClippingWarnings(false, false, false); len(warnings) != 0 {
		t.Errorf("sum at threshold should not warn, got %v", warnings)
	}
}
