package deserialize

import (
	"errors"
	"testing"
	"time"
)

func TestDeserializeHappyPath(t *testing.T) {
	raw := []byte(`{
		"listFlightIntention": [{"planId": 17879345, "indicative": "TAM3886"}],
		"listRealPath": [{"indicativeSafe": "TAM3886", "latitude": -0.412, "longitude": -0.813, "flightLevel": 2, "trackSpeed": 140}]
	}`)
	storedAt := time.UnixMilli(1720660000000)

	rp, err := Deserialize(raw, storedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rp.PacketStoredTimestamp.Equal(storedAt) {
		t.Fatalf("stored timestamp not attached")
	}
	if len(rp.ListFlightIntention) != 1 || rp.ListFlightIntention[0].PlanID != 17879345 {
		t.Fatalf("unexpected intentions: %+v", rp.ListFlightIntention)
	}
	if len(rp.ListRealPath) != 1 || rp.ListRealPath[0].IndicativeSafe != "TAM3886" {
		t.Fatalf("unexpected real path: %+v", rp.ListRealPath)
	}
}

func TestDeserializeGarbageSkips(t *testing.T) {
	_, err := Deserialize([]byte("not json"), time.Now())
	if !errors.Is(err, ErrSkip) {
		t.Fatalf("expected ErrSkip, got %v", err)
	}
}
