package core

import (
	"context"
	"strings"
	"testing"

	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/model"
)

const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"

	gpsLine1 = "1 24876U 97035A   21275.47367116  .00000037  00000-0  00000-0 0  9997"
	gpsLine2 = "2 24876  55.5962 171.4560 0051499  53.6358 307.0658  2.00564478177460"
)

func TestParseTLEWellFormed(t *testing.T) {
	text := strings.Join([]string{
		"ISS (ZARYA)", issLine1, issLine2,
		"GPS BIIR-2  (PRN 13)", gpsLine1, gpsLine2,
	}, "\n")

	sats := ParseTLE(context.Background(), text, logging.Noop())
	if len(sats) != 2 {
		t.Fatalf("parsed %d satellites, want 2", len(sats))
	}

	iss := sats[0]
	if iss.ID != "25544" {
		t.Errorf("iss.ID = %q, want %q", iss.ID, "25544")
	}
	if iss.Name != "ISS (ZARYA)" {
		t.Errorf("iss.Name = %q, want %q", iss.Name, "ISS (ZARYA)")
	}
	if iss.Regime != model.RegimeLEO {
		t.Errorf("iss.Regime = %v, want %v", iss.Regime, model.RegimeLEO)
	}
	tle := iss.Elements.TwoLine
	if tle == nil {
		t.Fatal("iss.Elements.TwoLine is nil")
	}
	if iss.Elements.Keplerian != nil {
		t.Fatal("iss.Elements.Keplerian populated alongside TwoLine")
	}
	if got, want := tle.MeanMotion, 15.49370953; abs(got-want) > 1e-6 {
		t.Errorf("iss mean motion = %v, want %v", got, want)
	}
	if got, want := tle.Eccentricity, 0.0001817; abs(got-want) > 1e-9 {
		t.Errorf("iss eccentricity = %v, want %v", got, want)
	}

	if sats[1].ID != "24876" {
		t.Errorf("second satellite ID = %q, want %q (input order preserved)", sats[1].ID, "24876")
	}
	if sats[1].Regime != model.RegimeMEO {
		t.Errorf("gps regime = %v, want %v", sats[1].Regime, model.RegimeMEO)
	}
}

func TestParseTLEMalformedTriplesAreDropped(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{
			name: "short line2 dropped, rest parsed",
			text: strings.Join([]string{
				"BROKEN", "1 00001U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990", "2 00001 truncated",
				"ISS (ZARYA)", issLine1, issLine2,
			}, "\n"),
			want: 1,
		},
		{
			name: "non-numeric mean motion dropped",
			text: strings.Join([]string{
				"BROKEN", issLine1, issLine2[:52] + "xxxxxxxxxxx" + issLine2[63:],
				"ISS (ZARYA)", issLine1, issLine2,
			}, "\n"),
			want: 1,
		},
		{
			name: "stray header resyncs by one line",
			text: strings.Join([]string{
				"# comment line",
				"ISS (ZARYA)", issLine1, issLine2,
			}, "\n"),
			want: 1,
		},
		{
			name: "empty input",
			text: "",
			want: 0,
		},
		{
			name: "name lines only",
			text: "A\nB\nC\nD",
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sats := ParseTLE(context.Background(), tc.text, logging.Noop())
			if len(sats) != tc.want {
				t.Fatalf("parsed %d satellites, want %d", len(sats), tc.want)
			}
		})
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
