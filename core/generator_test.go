package core

import (
	"fmt"
	"math"
	"testing"

	"github.com/signalsfoundry/constellation-tracker/model"
)

func TestGenerateConstellationShape(t *testing.T) {
	const planes, perPlane = 6, 4
	sats := GenerateConstellation("gps-constellation", planes, perPlane, 20200, 55, model.RegimeMEO, nil)

	if len(sats) != planes*perPlane {
		t.Fatalf("generated %d satellites, want %d", len(sats), planes*perPlane)
	}

	seen := make(map[string]bool, len(sats))
	for i, sat := range sats {
		plane := i / perPlane
		slot := i % perPlane
		wantID := fmt.Sprintf("gps-constellation-P%02d-S%02d", plane+1, slot+1)
		if sat.ID != wantID {
			t.Errorf("sats[%d].ID = %q, want %q", i, sat.ID, wantID)
		}
		if seen[sat.ID] {
			t.Errorf("duplicate satellite id %q", sat.ID)
		}
		seen[sat.ID] = true

		kep := sat.Elements.Keplerian
		if kep == nil {
			t.Fatalf("sats[%d] has no keplerian elements", i)
		}
		if sat.Elements.TwoLine != nil {
			t.Fatalf("sats[%d] has both element variants", i)
		}
		if kep.SemiMajorAxisKm != EarthRadiusKm+20200 {
			t.Errorf("sats[%d] semi-major axis = %v, want %v", i, kep.SemiMajorAxisKm, EarthRadiusKm+20200)
		}
		if kep.Eccentricity < 0.001 || kep.Eccentricity >= 0.006 {
			t.Errorf("sats[%d] eccentricity = %v, want [0.001, 0.006)", i, kep.Eccentricity)
		}
		if math.Abs(kep.InclinationDeg-55) > 0.5 {
			t.Errorf("sats[%d] inclination = %v, want 55 +/- 0.5", i, kep.InclinationDeg)
		}
		if kep.ArgPerigeeDeg < 0 || kep.ArgPerigeeDeg >= 360 {
			t.Errorf("sats[%d] argument of perigee = %v, want [0, 360)", i, kep.ArgPerigeeDeg)
		}

		wantRAAN := 360 * float64(plane) / planes
		if kep.RAANDeg != wantRAAN {
			t.Errorf("sats[%d] RAAN = %v, want %v", i, kep.RAANDeg, wantRAAN)
		}
	}
}

func TestGenerateConstellationPhaseSpacing(t *testing.T) {
	const planes, perPlane = 3, 8
	sats := GenerateConstellation("mesh", planes, perPlane, 550, 53, model.RegimeLEO, nil)

	// Within one plane, anomalies are spaced by exactly 360/perPlane
	// degrees; the jitter never touches the phase.
	for plane := 0; plane < planes; plane++ {
		base := sats[plane*perPlane].Elements.Keplerian.TrueAnomalyDeg
		for slot := 0; slot < perPlane; slot++ {
			got := sats[plane*perPlane+slot].Elements.Keplerian.TrueAnomalyDeg
			want := math.Mod(base+360*float64(slot)/perPlane, 360)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("plane %d slot %d anomaly = %v, want %v", plane, slot, got, want)
			}
		}
	}

	// Adjacent planes are phased by 360/(planes*perPlane) degrees.
	offset := sats[perPlane].Elements.Keplerian.TrueAnomalyDeg - sats[0].Elements.Keplerian.TrueAnomalyDeg
	want := 360.0 / (planes * perPlane)
	if math.Abs(offset-want) > 1e-9 {
		t.Errorf("cross-plane phase offset = %v, want %v", offset, want)
	}
}

func TestGenerateConstellationSeededReproducibility(t *testing.T) {
	a := GenerateConstellation("leo-mesh", 4, 5, 550, 53, model.RegimeLEO, SeededRand("leo-mesh"))
	b := GenerateConstellation("leo-mesh", 4, 5, 550, 53, model.RegimeLEO, SeededRand("leo-mesh"))

	for i := range a {
		ka, kb := *a[i].Elements.Keplerian, *b[i].Elements.Keplerian
		if ka != kb {
			t.Fatalf("seeded generation diverged at %d: %+v vs %+v", i, ka, kb)
		}
	}

	// Unseeded calls jitter independently.
	c := GenerateConstellation("leo-mesh", 4, 5, 550, 53, model.RegimeLEO, nil)
	d := GenerateConstellation("leo-mesh", 4, 5, 550, 53, model.RegimeLEO, nil)
	same := true
	for i := range c {
		if *c[i].Elements.Keplerian != *d[i].Elements.Keplerian {
			same = false
			break
		}
	}
	if same {
		t.Fatal("unseeded generation produced identical jitter twice")
	}
}

func TestGenerateConstellationDegenerateParams(t *testing.T) {
	if got := GenerateConstellation("x", 0, 4, 550, 53, model.RegimeLEO, nil); got != nil {
		t.Fatalf("planes=0 produced %d satellites, want none", len(got))
	}
	if got := GenerateConstellation("x", 4, 0, 550, 53, model.RegimeLEO, nil); got != nil {
		t.Fatalf("satsPerPlane=0 produced %d satellites, want none", len(got))
	}
}
