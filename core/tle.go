package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/model"
)

// Fixed column ranges of the NORAD two-line element format (0-indexed,
// half-open). Line 1 carries the catalog number; line 2 carries the
// eccentricity (implied leading "0.") and the mean motion.
const (
	tleCatalogStart = 2
	tleCatalogEnd   = 7
	tleEccStart     = 26
	tleEccEnd       = 33
	tleMotionStart  = 52
	tleMotionEnd    = 63
)

// ParseTLE splits raw two-line element text into satellites. The input is
// a repeating block of (name line, "1 ..." line, "2 ..." line).
//
// A triple whose data lines do not start with "1 " / "2 " advances the
// scan by a single line so a stray header or blank does not desynchronise
// the rest of the file. A triple with an unparseable field is logged and
// dropped; parsing continues. Input order is preserved. Duplicate catalog
// ids are not cross-checked.
func ParseTLE(ctx context.Context, text string, log logging.Logger) []model.Satellite {
	if log == nil {
		log = logging.Noop()
	}

	rawLines := strings.Split(strings.TrimSpace(text), "\n")
	lines := make([]string, len(rawLines))
	for i, l := range rawLines {
		lines[i] = strings.TrimSpace(l)
	}

	var sats []model.Satellite
	for i := 0; i < len(lines)-2; {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			i++
			continue
		}

		sat, err := satelliteFromTriple(name, line1, line2)
		if err != nil {
			log.Warn(ctx, "dropping malformed TLE record",
				logging.String("name", name),
				logging.String("error", err.Error()),
			)
			i += 3
			continue
		}

		sats = append(sats, sat)
		i += 3
	}

	return sats
}

func satelliteFromTriple(name, line1, line2 string) (model.Satellite, error) {
	if len(line1) < tleCatalogEnd {
		return model.Satellite{}, fmt.Errorf("line1 too short: %d chars", len(line1))
	}
	if len(line2) < tleMotionEnd {
		return model.Satellite{}, fmt.Errorf("line2 too short: %d chars", len(line2))
	}

	catalogID := strings.TrimSpace(line1[tleCatalogStart:tleCatalogEnd])

	meanMotion, err := strconv.ParseFloat(strings.TrimSpace(line2[tleMotionStart:tleMotionEnd]), 64)
	if err != nil {
		return model.Satellite{}, fmt.Errorf("mean motion: %w", err)
	}

	// The eccentricity field is a decimal fraction with an implied "0."
	// prefix (e.g. "0001817" -> 0.0001817).
	ecc, err := strconv.ParseFloat("0."+strings.TrimSpace(line2[tleEccStart:tleEccEnd]), 64)
	if err != nil {
		return model.Satellite{}, fmt.Errorf("eccentricity: %w", err)
	}

	return model.Satellite{
		ID:     catalogID,
		Name:   name,
		Regime: ClassifyOrbit(meanMotion, ecc),
		Elements: model.ElementSet{
			TwoLine: &model.TwoLineElements{
				CatalogID:    catalogID,
				Line1:        line1,
				Line2:        line2,
				MeanMotion:   meanMotion,
				Eccentricity: ecc,
			},
		},
	}, nil
}
