package flightstore

import (
	"context"
	"testing"
	"time"

	"github.com/flightfusion/fusion/internal/model"
	"github.com/flightfusion/fusion/pkg/logger"
)

func mustLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", mustLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertThenFindByPlanID(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	f := &model.Flight{PlanID: 1, Indicative: "TAM3886", LastPacketTimestamp: time.Now().UTC()}
	if err := s.Upsert(ctx, f); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	found, err := s.FindByPlanID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByPlanID: %v", err)
	}
	if found == nil || found.Indicative != "TAM3886" {
		t.Fatalf("FindByPlanID = %+v, want Indicative=TAM3886", found)
	}

	f.Indicative = "TAM3887"
	if err := s.Upsert(ctx, f); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	found, err = s.FindByPlanID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByPlanID after update: %v", err)
	}
	if found.Indicative != "TAM3887" {
		t.Fatalf("Indicative after update = %q, want TAM3887", found.Indicative)
	}
}

func TestFindByPlanIDMissingReturnsNilNil(t *testing.T) {
	s := mustStore(t)
	found, err := s.FindByPlanID(context.Background(), 999)
	if err != nil {
		t.Fatalf("FindByPlanID: %v", err)
	}
	if found != nil {
		t.Fatalf("FindByPlanID = %+v, want nil", found)
	}
}

func TestFindAllByIndicativeReturnsInsertionOrder(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		if err := s.Upsert(ctx, &model.Flight{PlanID: id, Indicative: "TAM3886"}); err != nil {
			t.Fatalf("Upsert %d: %v", id, err)
		}
	}

	candidates, err := s.FindAllByIndicative(ctx, "TAM3886")
	if err != nil {
		t.Fatalf("FindAllByIndicative: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("len(candidates) = %d, want 3", len(candidates))
	}
	for i, want := range []int64{1, 2, 3} {
		if candidates[i].PlanID != want {
			t.Fatalf("candidates[%d].PlanID = %d, want %d", i, candidates[i].PlanID, want)
		}
	}
}

func TestDeleteByPlanID(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &model.Flight{PlanID: 1, Indicative: "TAM3886"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	deleted, err := s.DeleteByPlanID(ctx, 1)
	if err != nil || !deleted {
		t.Fatalf("DeleteByPlanID = (%v, %v), want (true, nil)", deleted, err)
	}

	deleted, err = s.DeleteByPlanID(ctx, 1)
	if err != nil || deleted {
		t.Fatalf("second DeleteByPlanID = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestCleanupDedupKeepsFirstOccurrence(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	f := &model.Flight{
		PlanID:     1,
		Indicative: "TAM3886",
		TrackingPoints: []model.TrackingPoint{
			{Timestamp: time.Unix(0, 0), Latitude: -23.4, Longitude: -46.4, IndicativeSafe: "TAM3886"},
			{Timestamp: time.Unix(100, 0), Latitude: -23.4, Longitude: -46.4, IndicativeSafe: "TAM3886"},
			{Timestamp: time.Unix(200, 0), Latitude: -22.9, Longitude: -43.1, IndicativeSafe: "TAM3886"},
		},
		TotalTrackingPoints: 3,
	}
	if err := s.Upsert(ctx, f); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	removed, err := s.CleanupDedup(ctx, 1)
	if err != nil {
		t.Fatalf("CleanupDedup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	found, err := s.FindByPlanID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByPlanID: %v", err)
	}
	if len(found.TrackingPoints) != 2 {
		t.Fatalf("len(TrackingPoints) = %d, want 2", len(found.TrackingPoints))
	}
	if found.TrackingPoints[0].Timestamp.Unix() != 0 {
		t.Fatalf("kept point should be the first occurrence")
	}
}
