package model

import "fmt"

// SolfeggioFrequency describes one of the nine named solfeggio tones.
type SolfeggioFrequency struct {
	Hz          float64 `json:"hz"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// SolfeggioCatalog lists the nine supported tones in ascending order.
var SolfeggioCatalog = []SolfeggioFrequency{
	{Hz: 174, Name: "Foundation", Description: "Pain relief and a sense of security"},
	{Hz: 285, Name: "Restoration", Description: "Tissue and energy-field restoration"},
	{Hz: 396, Name: "Liberation", Description: "Release of guilt and fear"},
	{Hz: 417, Name: "Change", Description: "Undoing situations and facilitating change"},
	{Hz: 528, Name: "Transformation", Description: "Transformation and repair, the love frequency"},
	{Hz: 639, Name: "Connection", Description: "Harmonizing relationships"},
	{Hz: 741, Name: "Expression", Description: "Expression and problem solving"},
	{Hz: 852, Name: "Intuition", Description: "Return to spiritual order"},
	{Hz: 963, Name: "Awakening", Description: "Awakening and unity"},
}

// LookupSolfeggio returns the catalog entry for a frequency.
func LookupSolfeggio(hz float64) (SolfeggioFrequency, bool) {
	for _, f := range SolfeggioCatalog {
		if f.Hz == hz {
			return f, true
		}
	}
	return SolfeggioFrequency{}, false
}

// BinauralBand names a brainwave band targeted by a binaural beat.
type BinauralBand string

const (
	BandDelta BinauralBand = "delta"
	BandTheta BinauralBand = "theta"
	BandAlpha BinauralBand = "alpha"
	BandBeta  BinauralBand = "beta"
	BandGamma BinauralBand = "gamma"
)

// BinauralBandRange holds the valid beat-frequency range for a band.
type BinauralBandRange struct {
	MinHz float64
	MaxHz float64
}

// DefaultCarrierHz is the base frequency played in the left channel when the
// payload does not specify one.
const DefaultCarrierHz = 200.0

var binauralBands = map[BinauralBand]BinauralBandRange{
	BandDelta: {MinHz: 0.5, MaxHz: 4},
	BandTheta: {MinHz: 4, MaxHz: 8},
	BandAlpha: {MinHz: 8, MaxHz: 13},
	BandBeta:  {MinHz: 13, MaxHz: 30},
	BandGamma: {MinHz: 30, MaxHz: 50},
}

// BandRange returns the beat-frequency range declared for a band.
func BandRange(band BinauralBand) (BinauralBandRange, error) {
	r, ok := binauralBands[band]
	if !ok {
		return BinauralBandRange{}, fmt.Errorf("unknown binaural band %q", band)
	}
	return r, nil
}

// DefaultBeatHz returns the midpoint of a band's range, used when the payload
// names a band without an explicit beat frequency.
func DefaultBeatHz(band BinauralBand) (float64, error) {
	r, err := BandRange(band)
	if err != nil {
		return 0, err
	}
	return (r.MinHz + r.MaxHz) / 2, nil
}

// Contains reports whether a beat frequency falls inside the band's range.
func (r BinauralBandRange) Contains(hz float64) bool {
	return hz >= r.MinHz && hz <= r.MaxHz
}
