// Package simulate provides the densifier's primary position-projection
// capability: simulate(intention, tSeconds) -> Option<point>, represented in
// Go as (Point, bool). It is a capability, not a concrete dependency on any
// external trajectory service; the densifier must also exercise the
// mandatory linear-interpolation fallback even when this capability returns
// false. The dead-reckoning integration is adapted from the teacher's
// position-update loop; heading correction folds in magnetic variation via
// the physics package's heading-vector/declination helpers.
package simulate

import (
	"math"
	"time"

	"github.com/flightfusion/fusion/internal/physics"
)

// Intention is the subset of flight-plan data the simulator needs to
// project a position: a starting point, a cruise heading and speed, and the
// time at which that state was true.
type Intention struct {
	StartLatDeg   float64
	StartLonDeg   float64
	StartLevelFt  float64
	HeadingDeg    float64
	SpeedKnots    float64
	VerticalFtMin float64
	At            time.Time
}

// Point is a simulated position at some elapsed time.
type Point struct {
	LatDeg    float64
	LonDeg    float64
	LevelFt   float64
	AltitudeFeet float64
}

// Simulator is the capability the densifier depends on.
type Simulator interface {
	Simulate(intention Intention, tSeconds float64) (Point, bool)
}

// DeadReckoning is a Simulator that integrates heading/speed/vertical-rate
// forward from the intention's reference time, the way the teacher's
// simulation service advances SimulatedAircraft positions every tick, here
// evaluated at an arbitrary elapsed time instead of a fixed tick.
type DeadReckoning struct{}

// NewDeadReckoning returns the default simulator implementation.
func NewDeadReckoning() *DeadReckoning { return &DeadReckoning{} }

// Simulate projects the intention's position forward by tSeconds. It
// returns false (capability unavailable) when speed is non-positive, so
// callers fall back to linear interpolation as the spec requires.
func (DeadReckoning) Simulate(intention Intention, tSeconds float64) (Point, bool) {
	if intention.SpeedKnots <= 0 || tSeconds < 0 {
		return Point{}, false
	}

	deltaHours := tSeconds / 3600.0
	distanceNM := intention.SpeedKnots * deltaHours

	variation := physics.CalculateMagneticVariation(
		intention.StartLatDeg, intention.StartLonDeg, intention.StartLevelFt, intention.At)
	trueHeading := intention.HeadingDeg + variation

	vec := physics.HeadingToVector(trueHeading, distanceNM)
	latChange := vec.Y / 60.0
	lonChange := vec.X / (60.0 * math.Cos(intention.StartLatDeg*math.Pi/180.0))

	level := intention.StartLevelFt + intention.VerticalFtMin*(tSeconds/60.0)

	return Point{
		LatDeg:       intention.StartLatDeg + latChange,
		LonDeg:       intention.StartLonDeg + lonChange,
		LevelFt:      level,
		AltitudeFeet: level,
	}, true
}
