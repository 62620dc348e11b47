package model

import (
	"fmt"
	"math"
)

// GainSet holds the per-layer dB gains applied during mixing.
type GainSet struct {
	Master    float64 `json:"master" validate:"min=-12,max=3"`
	Voice     float64 `json:"voice" validate:"min=-12,max=3"`
	Music     float64 `json:"music" validate:"min=-24,max=0"`
	Solfeggio float64 `json:"solfeggio" validate:"min=-30,max=-6"`
	Binaural  float64 `json:"binaural" validate:"min=-30,max=-6"`
}

// ClippingRiskThresholdDb is the layer-plus-master sum above which a
// configuration is flagged as likely to clip. The warning is advisory;
// submission is never blocked on it.
const ClippingRiskThresholdDb = 3.0

// DbToLinear converts a dB gain to a linear amplitude multiplier.
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// ClippingWarnings returns one warning per active layer whose gain plus the
// master gain exceeds the clipping-risk threshold.
func (g GainSet) ClippingWarnings(musicActive, solfeggioActive, binauralActive bool) []string {
	type layer struct {
		name   string
		db     float64
		active bool
	}
	layers := []layer{
		{"voice", g.Voice, true},
		{"music", g.Music, musicActive},
		{"solfeggio", g.Solfeggio, solfeggioActive},
		{"binaural", g.Binaural, binauralActive},
	}

	var warnings []string
	for _, l := range layers {
		if !l.active {
			continue
		}
		if sum := l.db + g.Master; sum > ClippingRiskThresholdDb {
			warnings = append(warnings, fmt.Sprintf(
				"%s gain plus master is %.1f dB, above the %.0f dB clipping-risk threshold",
				l.name, sum, ClippingRiskThresholdDb))
		}
	}
	return warnings
}

// DefaultGains returns the gain staging applied when a payload omits gains.
func DefaultGains() GainSet {
	return GainSet{
		Master:    0,
		Voice:     0,
		Music:     -12,
		Solfeggio: -18,
		Binaural:  -18,
	}
}
