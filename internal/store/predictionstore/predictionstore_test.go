package predictionstore

import (
	"context"
	"testing"

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

func TestSaveThenFindByInstanceID(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	pf := &model.PredictedFlight{InstanceID: 1, Indicative: "TAM3886", TotalRouteElements: 2}
	if err := s.Save(ctx, pf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := s.FindByInstanceID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByInstanceID: %v", err)
	}
	if found == nil || found.TotalRouteElements != 2 {
		t.Fatalf("FindByInstanceID = %+v, want TotalRouteElements=2", found)
	}
}

func TestExistsByInstanceID(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	exists, err := s.ExistsByInstanceID(ctx, 1)
	if err != nil || exists {
		t.Fatalf("ExistsByInstanceID (before save) = (%v, %v), want (false, nil)", exists, err)
	}

	if err := s.Save(ctx, &model.PredictedFlight{InstanceID: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	exists, err = s.ExistsByInstanceID(ctx, 1)
	if err != nil || !exists {
		t.Fatalf("ExistsByInstanceID (after save) = (%v, %v), want (true, nil)", exists, err)
	}
}

func TestSaveAllPersistsWholeBatch(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	batch := []*model.PredictedFlight{
		{InstanceID: 1, Indicative: "A"},
		{InstanceID: 2, Indicative: "B"},
		{InstanceID: 3, Indicative: "C"},
	}

	result := s.SaveAll(ctx, batch)
	if result.Persisted != 3 {
		t.Fatalf("Persisted = %d, want 3", result.Persisted)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("Failed = %+v, want empty", result.Failed)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count = %d, want 3", n)
	}
}

func TestDeleteByInstanceID(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &model.PredictedFlight{InstanceID: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deleted, err := s.Delete(ctx, 1)
	if err != nil || !deleted {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", deleted, err)
	}

	deleted, err = s.Delete(ctx, 1)
	if err != nil || deleted {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestFindAllOrdersByInsertion(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		if err := s.Save(ctx, &model.PredictedFlight{InstanceID: id}); err != nil {
			t.Fatalf("Save %d: %v", id, err)
		}
	}

	all, err := s.FindAll(ctx, 0, 10)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].InstanceID != 3 || all[1].InstanceID != 1 || all[2].InstanceID != 2 {
		t.Fatalf("FindAll order = %v, want insertion order [3,1,2]", all)
	}
}
