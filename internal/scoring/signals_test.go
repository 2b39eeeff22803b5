package scoring

import (
	"math"
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func subjectAt(lat, lon float64) Subject {
	return Subject{Latitude: &lat, Longitude: &lon}
}

func TestHaversineKM(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKM                 float64
		tolerance              float64
	}{
		{name: "same point", lat1: 52.23, lon1: 21.01, lat2: 52.23, lon2: 21.01, wantKM: 0, tolerance: 0.001},
		{name: "warsaw to krakow", lat1: 52.2297, lon1: 21.0122, lat2: 50.0647, lon2: 19.9450, wantKM: 252, tolerance: 5},
		{name: "equator degree", lat1: 0, lon1: 0, lat2: 0, lon2: 1, wantKM: 111.2, tolerance: 0.5},
		{name: "short hop", lat1: 52.2297, lon1: 21.0122, lat2: 52.2342, lon2: 21.0122, wantKM: 0.5, tolerance: 0.05},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HaversineKM(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.wantKM) > tc.tolerance {
				t.Fatalf("HaversineKM = %.3f, want %.3f ± %.3f", got, tc.wantKM, tc.tolerance)
			}
		})
	}
}

func TestGeoScore(t *testing.T) {
	t.Run("missing coordinates on either side yields nil", func(t *testing.T) {
		withCoords := subjectAt(52.23, 21.01)
		if got := GeoScore(withCoords, Subject{}, 50); got != nil {
			t.Fatalf("expected nil score, got %v", *got)
		}
		if got := GeoScore(Subject{}, withCoords, 50); got != nil {
			t.Fatalf("expected nil score, got %v", *got)
		}
	})

	t.Run("identical location scores 1", func(t *testing.T) {
		a := subjectAt(52.23, 21.01)
		got := GeoScore(a, a, 50)
		if got == nil || math.Abs(*got-1) > 1e-9 {
			t.Fatalf("expected 1, got %v", got)
		}
	})

	t.Run("distance beyond max clamps to 0", func(t *testing.T) {
		a := subjectAt(52.2297, 21.0122)
		b := subjectAt(50.0647, 19.9450)
		got := GeoScore(a, b, 50)
		if got == nil || *got != 0 {
			t.Fatalf("expected 0, got %v", got)
		}
	})

	t.Run("half a kilometer stays close to 1", func(t *testing.T) {
		a := subjectAt(52.2297, 21.0122)
		b := subjectAt(52.2342, 21.0122)
		got := GeoScore(a, b, 50)
		if got == nil || *got < 0.98 {
			t.Fatalf("expected score near 1, got %v", got)
		}
	})

	t.Run("out of range coordinates degrade to nil", func(t *testing.T) {
		a := subjectAt(123, 500)
		b := subjectAt(52.23, 21.01)
		if got := GeoScore(a, b, 50); got != nil {
			t.Fatalf("expected nil for malformed coordinates, got %v", *got)
		}
	})
}

func TestTemporalScore(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("missing timestamp on either side yields nil", func(t *testing.T) {
		withTime := Subject{OccurredAt: timePtr(base)}
		if got := TemporalScore(withTime, Subject{}, 168); got != nil {
			t.Fatalf("expected nil score, got %v", *got)
		}
	})

	t.Run("same instant scores 1", func(t *testing.T) {
		a := Subject{OccurredAt: timePtr(base)}
		got := TemporalScore(a, a, 168)
		if got == nil || *got != 1 {
			t.Fatalf("expected 1, got %v", got)
		}
	})

	t.Run("four hours within a week window", func(t *testing.T) {
		a := Subject{OccurredAt: timePtr(base)}
		b := Subject{OccurredAt: timePtr(base.Add(4 * time.Hour))}
		got := TemporalScore(a, b, 168)
		want := 1 - 4.0/168
		if got == nil || math.Abs(*got-want) > 1e-9 {
			t.Fatalf("expected %.4f, got %v", want, got)
		}
	})

	t.Run("gap beyond window clamps to 0", func(t *testing.T) {
		a := Subject{OccurredAt: timePtr(base)}
		b := Subject{OccurredAt: timePtr(base.Add(14 * 24 * time.Hour))}
		got := TemporalScore(a, b, 168)
		if got == nil || *got != 0 {
			t.Fatalf("expected 0, got %v", got)
		}
	})

	t.Run("order of arguments does not matter", func(t *testing.T) {
		a := Subject{OccurredAt: timePtr(base)}
		b := Subject{OccurredAt: timePtr(base.Add(30 * time.Hour))}
		ab := TemporalScore(a, b, 168)
		ba := TemporalScore(b, a, 168)
		if ab == nil || ba == nil || *ab != *ba {
			t.Fatalf("expected symmetric scores, got %v and %v", ab, ba)
		}
	})
}
