package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// ParsePlan parses a comma separated list of kind:ticks segments.
func ParsePlan(plan string) ([]Segment, error) {
	var segments []Segment
	for _, part := range strings.Split(plan, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, count, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: segment %q has no tick count", ErrInvalidPlan, part)
		}
		kind := Kind(strings.TrimSpace(name))
		if !validKind(kind) {
			return nil, fmt.Errorf("%w: unknown segment kind %q", ErrInvalidPlan, name)
		}
		ticks, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || ticks < 1 {
			return nil, fmt.Errorf("%w: segment %q needs a positive tick count", ErrInvalidPlan, part)
		}
		segments = append(segments, Segment{Kind: kind, Ticks: ticks})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}
	return segments, nil
}

func validKind(k Kind) bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Generate builds the replay records for segments. The output only depends
// on segments and seed.
func Generate(ctx context.Context, segments []Segment, seed uint64) []capture.Record {
	rng := rand.New(rand.NewPCG(seed, seed^seedStream)) //nolint:gosec // reproducible test data

	var records []capture.Record
	for _, seg := range segments {
		for i := 0; i < seg.Ticks; i++ {
			records = append(records, generateRecord(rng, seg.Kind, i))
		}
	}

	logger.Get().Info(ctx, "generated scenario",
		logger.Int("segments", len(segments)),
		logger.Int("ticks", len(records)))
	return records
}

// generateRecord creates the i-th record of a segment of the given kind.
func generateRecord(rng *rand.Rand, kind Kind, i int) capture.Record {
	switch kind {
	case KindAbsent:
		return capture.Record{MetricsSample: model.Absent()}
	case KindMissed:
		return capture.Record{Missed: true}
	case KindLost:
		return capture.Record{Lost: true}
	}

	s := model.MetricsSample{
		FacePresent: true,
		Yaw:         spread(rng, attentiveYawMax),
		Pitch:       spread(rng, attentivePitchMax),
		Roll:        spread(rng, rollMax),
	}
	ear := openEARMin + rng.Float64()*openEARRange

	switch kind {
	case KindDoze:
		ear = closedEARMin + rng.Float64()*closedEARRange
	case KindBlink:
		if i%blinkPeriod == blinkPhase {
			ear = closedEARMin + rng.Float64()*closedEARRange
		}
	case KindLookAway:
		yaw := awayYawMin + rng.Float64()*awayYawRange
		if rng.IntN(2) == 0 {
			yaw = -yaw
		}
		s.Yaw = yaw
	}

	// Eyes differ slightly; the average stays on the chosen side of the threshold.
	delta := spread(rng, 0.01)
	s.EARLeft = ear + delta
	s.EARRight = ear - delta
	return capture.Record{MetricsSample: s}
}

// spread returns a uniform value in [-limit, limit).
func spread(rng *rand.Rand, limit float64) float64 {
	return (rng.Float64()*2 - 1) * limit
}
