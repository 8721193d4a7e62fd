// Package densify implements the trajectory densifier (C8): it rewrites a
// PredictedFlight's RouteElements so the point count matches the matched
// Flight's observed TrackingPoints, enabling index-aligned error metrics in
// the trajectory-accuracy engine. The primary path uses a pluggable
// simulator capability; linear interpolation is the mandatory fallback and
// is exercised whenever the simulator is unavailable or fails.
package densify

import (
	"math"
	"time"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/internal/simulate"
)

// Result status, matching the C8 decision table.
type Status string

const (
	NotFound       Status = "NOT_FOUND"
	NoActionNeeded Status = "NO_ACTION_NEEDED"
	Success        Status = "SUCCESS"
	ErrorStatus    Status = "ERROR"
)

// Result is returned by Densify.
type Result struct {
	Status            Status
	SimulatedPoints   int
	InterpolatedPoints int
	TotalPoints       int
}

const (
	defaultSpeedKnots = 450.0
	defaultLevelFeet  = 35000.0
	metersPerFoot     = 0.3048
	feetPerMeter      = 3.28084
	msToKnots         = 1.94384
)

type preparedEndpoint struct {
	latDeg, lonDeg float64
	levelFeet      float64
	speedKnots     float64
	aetSeconds     float64
}

type preparedSegment struct {
	a, b preparedEndpoint
}

// Densify rewrites pf.RouteElements in place on SUCCESS. On any other
// status pf is left untouched. flight and pf may be nil to signal
// NOT_FOUND. sim may be nil, in which case every point generation falls
// back to linear interpolation.
func Densify(flight *model.Flight, pf *model.PredictedFlight, sim simulate.Simulator) Result {
	if flight == nil || pf == nil {
		return Result{Status: NotFound}
	}

	targetPointCount := len(flight.TrackingPoints)
	if targetPointCount <= len(pf.RouteElements) {
		return Result{Status: NoActionNeeded}
	}
	if targetPointCount < 2 || len(pf.RouteElements) < 2 {
		return Result{Status: ErrorStatus}
	}

	actualStart := flight.TrackingPoints[0].Timestamp
	actualEnd := flight.TrackingPoints[len(flight.TrackingPoints)-1].Timestamp
	actualDuration := actualEnd.Sub(actualStart)
	actualMinutes := actualDuration.Minutes()
	if actualMinutes <= 0 {
		return Result{Status: ErrorStatus}
	}

	segments, ok := prepareSegments(pf.RouteElements, actualMinutes)
	if !ok || len(segments) == 0 {
		return Result{Status: ErrorStatus}
	}

	elements, simCount, interpCount := generatePoints(segments, targetPointCount, actualDuration, sim)
	if len(elements) < len(pf.RouteElements) {
		return Result{Status: ErrorStatus}
	}

	pf.RouteElements = elements
	pf.TotalRouteElements = len(elements)

	return Result{
		Status:             Success,
		SimulatedPoints:    simCount,
		InterpolatedPoints: interpCount,
		TotalPoints:        len(elements),
	}
}

// prepareSegments builds consecutive-pair segments from the original route
// elements, rejecting any segment with a (0,0) sentinel endpoint, and
// rescales eetMinutes so the total spans actualMinutes.
func prepareSegments(elements []model.RouteElement, actualMinutes float64) ([]preparedSegment, bool) {
	maxOriginalEet := 0.0
	for _, e := range elements {
		if e.EETMinutes > maxOriginalEet {
			maxOriginalEet = e.EETMinutes
		}
	}
	if maxOriginalEet <= 0 {
		return nil, false
	}
	scale := actualMinutes / maxOriginalEet

	endpoint := func(e model.RouteElement) preparedEndpoint {
		speed := e.SpeedMeterPerSecond * msToKnots
		if e.SpeedMeterPerSecond == 0 {
			speed = defaultSpeedKnots
		}
		level := e.LevelMeters * feetPerMeter
		if e.LevelMeters == 0 {
			level = defaultLevelFeet
		}
		return preparedEndpoint{
			latDeg:     e.Latitude,
			lonDeg:     e.Longitude,
			levelFeet:  level,
			speedKnots: speed,
			aetSeconds: math.Round(e.EETMinutes*scale) * 60,
		}
	}

	segments := make([]preparedSegment, 0, len(elements)-1)
	for i := 0; i+1 < len(elements); i++ {
		ea, eb := elements[i], elements[i+1]
		if isZeroSentinel(ea) || isZeroSentinel(eb) {
			continue
		}
		a := endpoint(ea)
		b := endpoint(eb)
		if b.aetSeconds <= a.aetSeconds {
			b.aetSeconds = a.aetSeconds + 5*60
		}
		segments = append(segments, preparedSegment{a: a, b: b})
	}
	return segments, len(segments) > 0
}

func isZeroSentinel(e model.RouteElement) bool {
	return e.Latitude == 0 && e.Longitude == 0
}

// generatePoints samples N = targetPointCount points evenly across
// [0, actualDuration], trying the simulator first per enclosing segment and
// falling back to linear interpolation.
func generatePoints(segments []preparedSegment, targetPointCount int, actualDuration time.Duration, sim simulate.Simulator) ([]model.RouteElement, int, int) {
	n := targetPointCount
	totalSeconds := actualDuration.Seconds()
	step := totalSeconds / float64(n-1)

	elements := make([]model.RouteElement, 0, n)
	simCount, interpCount := 0, 0

	for i := 0; i < n; i++ {
		tI := float64(i) * step

		seg, segIdx := findEnclosingSegment(segments, tI)
		if seg == nil {
			continue
		}

		if sim != nil {
			if pt, ok := simulatedPoint(sim, *seg, tI); ok {
				elements = append(elements, model.RouteElement{
					Latitude:       pt.LatDeg,
					Longitude:      pt.LonDeg,
					LevelMeters:    pt.LevelFt * metersPerFoot,
					Altitude:       pt.AltitudeFeet / 100.0,
					ElementType:    model.ElementInterpolated,
					EETMinutes:     tI / 60.0,
					SequenceNumber: i,
				})
				simCount++
				continue
			}
		}

		ratio := 0.0
		if seg.b.aetSeconds > seg.a.aetSeconds {
			ratio = (tI - seg.a.aetSeconds) / (seg.b.aetSeconds - seg.a.aetSeconds)
		}
		ratio = clamp01(ratio)

		latDeg := lerp(seg.a.latDeg, seg.b.latDeg, ratio)
		lonDeg := lerp(seg.a.lonDeg, seg.b.lonDeg, ratio)
		levelFeet := lerp(seg.a.levelFeet, seg.b.levelFeet, ratio)

		elements = append(elements, model.RouteElement{
			Latitude:       latDeg,
			Longitude:      lonDeg,
			LevelMeters:    levelFeet * metersPerFoot,
			ElementType:    model.ElementInterpolatedLinear,
			Interpolated:   true,
			EETMinutes:     tI / 60.0,
			SequenceNumber: i,
		})
		interpCount++
		_ = segIdx
	}

	return elements, simCount, interpCount
}

func findEnclosingSegment(segments []preparedSegment, tSeconds float64) (*preparedSegment, int) {
	for i := range segments {
		if tSeconds >= segments[i].a.aetSeconds && tSeconds <= segments[i].b.aetSeconds {
			return &segments[i], i
		}
	}
	if len(segments) > 0 && tSeconds < segments[0].a.aetSeconds {
		return &segments[0], 0
	}
	if len(segments) > 0 && tSeconds > segments[len(segments)-1].b.aetSeconds {
		return &segments[len(segments)-1], len(segments) - 1
	}
	return nil, -1
}

// simulatedPoint asks the simulator capability to project forward from the
// segment's first endpoint toward the second.
func simulatedPoint(sim simulate.Simulator, seg preparedSegment, tSeconds float64) (simulate.Point, bool) {
	elapsed := tSeconds - seg.a.aetSeconds
	if elapsed < 0 {
		return simulate.Point{}, false
	}
	heading := initialBearingDeg(seg.a.latDeg, seg.a.lonDeg, seg.b.latDeg, seg.b.lonDeg)
	intention := simulate.Intention{
		StartLatDeg:   seg.a.latDeg,
		StartLonDeg:   seg.a.lonDeg,
		StartLevelFt:  seg.a.levelFeet,
		HeadingDeg:    heading,
		SpeedKnots:    seg.a.speedKnots,
		VerticalFtMin: (seg.b.levelFeet - seg.a.levelFeet) / ((seg.b.aetSeconds - seg.a.aetSeconds) / 60.0),
		At:            time.Now().UTC(),
	}
	return sim.Simulate(intention, elapsed)
}

func initialBearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	deg := theta*180/math.Pi + 360
	return math.Mod(deg, 360)
}

func lerp(a, b, ratio float64) float64 { return a + (b-a)*ratio }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
