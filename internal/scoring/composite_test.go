package scoring

import (
	"math"
	"testing"
)

func TestComposeAllSignals(t *testing.T) {
	p := DefaultParams()
	b := Breakdown{
		Geo:      floatPtr(1.0),
		Temporal: floatPtr(0.5),
		Text:     floatPtr(0.8),
		Visual:   floatPtr(0.2),
	}

	want := 1.0*0.30 + 0.5*0.20 + 0.8*0.30 + 0.2*0.20
	got := Compose(b, p)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Compose = %.4f, want %.4f", got, want)
	}
}

func TestComposeRenormalizesMissingSignals(t *testing.T) {
	p := DefaultParams()

	// Visual unavailable: its 0.20 weight redistributes across the rest.
	b := Breakdown{
		Geo:      floatPtr(1.0),
		Temporal: floatPtr(0.5),
		Text:     floatPtr(0.8),
	}
	want := (1.0*0.30 + 0.5*0.20 + 0.8*0.30) / 0.80
	got := Compose(b, p)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Compose = %.4f, want %.4f", got, want)
	}
}

func TestComposeSingleSignal(t *testing.T) {
	p := DefaultParams()
	b := Breakdown{Text: floatPtr(0.7)}

	got := Compose(b, p)
	if math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("Compose with one signal = %.4f, want 0.7", got)
	}
}

func TestComposeAllNull(t *testing.T) {
	p := DefaultParams()
	b := Breakdown{}

	if !b.AllNull() {
		t.Fatal("expected AllNull for empty breakdown")
	}
	if got := Compose(b, p); got != 0 {
		t.Fatalf("Compose with no signals = %.4f, want 0", got)
	}
}

func TestComposeStaysInRange(t *testing.T) {
	p := DefaultParams()
	cases := []Breakdown{
		{Geo: floatPtr(1), Temporal: floatPtr(1), Text: floatPtr(1), Visual: floatPtr(1)},
		{Geo: floatPtr(0), Temporal: floatPtr(0), Text: floatPtr(0), Visual: floatPtr(0)},
		{Geo: floatPtr(1.7), Text: floatPtr(-0.5)},
	}

	for i, b := range cases {
		got := Compose(b, p)
		if got < 0 || got > 1 {
			t.Fatalf("case %d: Compose = %.4f, out of [0,1]", i, got)
		}
	}
}

func TestComposeIgnoresZeroWeightSignals(t *testing.T) {
	p := DefaultParams()
	p.VisualWeight = 0

	b := Breakdown{Text: floatPtr(0.4), Visual: floatPtr(1.0)}
	got := Compose(b, p)
	if math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("Compose = %.4f, want 0.4 with visual weight 0", got)
	}
}
