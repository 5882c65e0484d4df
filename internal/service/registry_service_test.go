package service

import (
	"context"
	"errors"
	"testing"

	"plategate/internal/domain/plate"
)

func TestRegistryCreate(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	rec, err := svc.Create(context.Background(), CreatePlateInput{
		PlateNumber: "34ABC123",
		Description: "delivery van",
	}, "admin")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !rec.IsActive {
		t.Error("new plates must start active")
	}
	if rec.Sensitivity != plate.DefaultSensitivity {
		t.Errorf("sensitivity = %v, want default %v", rec.Sensitivity, plate.DefaultSensitivity)
	}
	if store.historyCount() != 1 {
		t.Fatalf("expected one history entry, got %d", store.historyCount())
	}
	entries, _ := store.ListHistory(context.Background(), 10, 0)
	if entries[0].Action != plate.HistoryActivate {
		t.Errorf("history action = %q, want %q", entries[0].Action, plate.HistoryActivate)
	}
}

func TestRegistryCreateDuplicate(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	if _, err := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate create: got %v, want ErrConflict", err)
	}
}

func TestRegistryCreateValidation(t *testing.T) {
	svc := NewRegistryService(newMemStore(), testLogger())

	if _, err := svc.Create(context.Background(), CreatePlateInput{}, "admin"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty plate number: got %v, want ErrInvalidInput", err)
	}

	bad := 120.0
	if _, err := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123", Sensitivity: &bad}, "admin"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("sensitivity out of range: got %v, want ErrInvalidInput", err)
	}
}

func TestRegistryUpdateAppendsHistoryPerChange(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	rec, err := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	desc := "front gate regular"
	sens := 70.0
	if _, err := svc.Update(context.Background(), rec.ID, UpdatePlateInput{
		Description: &desc,
		Sensitivity: &sens,
	}, "admin"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// One entry for the create plus one per changed aspect.
	if store.historyCount() != 3 {
		t.Fatalf("expected 3 history entries, got %d", store.historyCount())
	}
}

func TestRegistryUpdateNoChangesNoHistory(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	rec, _ := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")
	before := store.historyCount()

	same := "34ABC123"
	if _, err := svc.Update(context.Background(), rec.ID, UpdatePlateInput{PlateNumber: &same}, "admin"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if store.historyCount() != before {
		t.Error("a no-op update must not append history")
	}
}

func TestRegistryUpdatePlateNumberConflict(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")
	other, _ := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "06XYZ421"}, "admin")

	taken := "34ABC123"
	_, err := svc.Update(context.Background(), other.ID, UpdatePlateInput{PlateNumber: &taken}, "admin")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("renaming onto a taken number: got %v, want ErrConflict", err)
	}
}

func TestRegistryDeactivateStopsAuthorization(t *testing.T) {
	store := newMemStore()
	registry := NewRegistryService(store, testLogger())
	decisions := NewDecisionService(store, nil, testLogger())

	rec, err := registry.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, _ := decisions.Decide(context.Background(), plate.DetectionEvent{PlateNumber: "34ABC123", Confidence: 95})
	if !result.IsAuthorized {
		t.Fatal("active plate with high confidence must be authorized")
	}

	if _, err := registry.SetActive(context.Background(), rec.ID, false, "admin"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	result, _ = decisions.Decide(context.Background(), plate.DetectionEvent{PlateNumber: "34ABC123", Confidence: 95})
	if result.IsAuthorized {
		t.Fatal("deactivated plate must be denied regardless of confidence")
	}

	entries, _ := store.ListHistory(context.Background(), 10, 0)
	last := entries[len(entries)-1]
	if last.Action != plate.HistoryDeactivate {
		t.Errorf("last history action = %q, want %q", last.Action, plate.HistoryDeactivate)
	}
}

func TestRegistrySetActiveRejectsNoOp(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	rec, _ := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")

	_, err := svc.SetActive(context.Background(), rec.ID, true, "admin")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("activating an active plate: got %v, want ErrInvalidInput", err)
	}
}

func TestRegistryDelete(t *testing.T) {
	store := newMemStore()
	svc := NewRegistryService(store, testLogger())

	rec, _ := svc.Create(context.Background(), CreatePlateInput{PlateNumber: "34ABC123"}, "admin")

	if err := svc.Delete(context.Background(), rec.ID, "admin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted plate lookup: got %v, want ErrNotFound", err)
	}

	// The history entry outlives the record.
	entries, _ := store.ListHistory(context.Background(), 10, 0)
	last := entries[len(entries)-1]
	if last.Action != plate.HistoryDelete || last.PlateNumber != "34ABC123" {
		t.Errorf("unexpected terminal history entry: %+v", last)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	svc := NewRegistryService(newMemStore(), testLogger())

	if _, err := svc.Get(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(context.Background(), 999, UpdatePlateInput{}, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown id: got %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), 999, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete unknown id: got %v, want ErrNotFound", err)
	}
}
