package geodesy

import (
	"math"
	"testing"
)

func TestDistanceKmIdentityAndSymmetry(t *testing.T) {
	p := [2]float64{-23.5505, -46.6333}
	q := [2]float64{-22.9068, -43.1729}

	if d := DistanceKm(p[0], p[1], p[0], p[1]); math.Abs(d) > 1e-9 {
		t.Fatalf("haversine(p,p) = %v, want 0", d)
	}

	d1 := DistanceKm(p[0], p[1], q[0], q[1])
	d2 := DistanceKm(q[0], q[1], p[0], p[1])
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("haversine not symmetric: %v vs %v", d1, d2)
	}

	r := [2]float64{-15.7942, -47.8822}
	d13 := DistanceKm(p[0], p[1], r[0], r[1])
	d32 := DistanceKm(r[0], r[1], q[0], q[1])
	if d1 > d13+d32+1e-6 {
		t.Fatalf("triangle inequality violated: %v > %v + %v", d1, d13, d32)
	}
}

func TestToDegreesRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 1, -1, 180, -180, 360, -360, 90.12345} {
		got := ToDegrees(ToRadians(x))
		if math.Abs(got-x) > 1e-9 {
			t.Fatalf("round trip mismatch for %v: got %v", x, got)
		}
	}
}

func TestCoordKeyFormatsSixDecimals(t *testing.T) {
	got := CoordKey(-0.4123456789, -0.8134567, "TAM3886")
	want := "-0.412346,-0.813457,TAM3886"
	if got != want {
		t.Fatalf("CoordKey = %q, want %q", got, want)
	}
}

func TestCoordKeyEmptyIndicative(t *testing.T) {
	got := CoordKey(1, 2, "")
	want := "1.000000,2.000000,"
	if got != want {
		t.Fatalf("CoordKey = %q, want %q", got, want)
	}
}

func TestTimestampCoordKeyPrefixesTimestamp(t *testing.T) {
	got := TimestampCoordKey(1720660000000, 1, 2, "X")
	want := "1720660000000,1.000000,2.000000,X"
	if got != want {
		t.Fatalf("TimestampCoordKey = %q, want %q", got, want)
	}
}
