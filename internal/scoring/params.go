package scoring

import (
	"fmt"
	"time"
)

// Params is an immutable set of weights and thresholds. A value is built once
// from configuration and shared by concurrent matching runs; runs with
// different tunings can coexist by constructing separate values.
type Params struct {
	GeoWeight      float64
	TemporalWeight float64
	TextWeight     float64
	VisualWeight   float64

	MaxDistanceKM   float64
	MaxWindowHours  float64
	AcceptThreshold float64
	CategoryBoost   float64
	CandidateLimit  int
}

func DefaultParams() Params {
	return Params{
		GeoWeight:       0.30,
		TemporalWeight:  0.20,
		TextWeight:      0.30,
		VisualWeight:    0.20,
		MaxDistanceKM:   50,
		MaxWindowHours:  168,
		AcceptThreshold: 0.35,
		CategoryBoost:   0.05,
		CandidateLimit:  200,
	}
}

func (p Params) Validate() error {
	if p.GeoWeight < 0 || p.TemporalWeight < 0 || p.TextWeight < 0 || p.VisualWeight < 0 {
		return fmt.Errorf("signal weights must be >= 0")
	}
	if p.GeoWeight+p.TemporalWeight+p.TextWeight+p.VisualWeight <= 0 {
		return fmt.Errorf("at least one signal weight must be > 0")
	}
	if p.MaxDistanceKM <= 0 {
		return fmt.Errorf("max distance must be > 0")
	}
	if p.MaxWindowHours <= 0 {
		return fmt.Errorf("max window must be > 0")
	}
	if p.AcceptThreshold < 0 || p.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold must be in [0,1]")
	}
	return nil
}

func (p Params) MaxWindow() time.Duration {
	return time.Duration(p.MaxWindowHours * float64(time.Hour))
}

// Subject carries the report attributes the scorers read. The matching engine
// maps stored reports onto this shape so scorers stay free of storage types.
type Subject struct {
	Title       string
	Description string
	Category    string
	Latitude    *float64
	Longitude   *float64
	OccurredAt  *time.Time
	ImageHashes []string
}

func (s Subject) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Breakdown holds the individual signal values for one report pair. A nil
// component means the signal was unavailable for that pair.
type Breakdown struct {
	Geo      *float64 `json:"geo"`
	Temporal *float64 `json:"temporal"`
	Text     *float64 `json:"text"`
	Visual   *float64 `json:"visual"`
}

func (b Breakdown) AllNull() bool {
	return b.Geo == nil && b.Temporal == nil && b.Text == nil && b.Visual == nil
}
