package worker

import (
	"testing"
	"time"
)

func TestDeduplicatorFirstSighting(t *testing.T) {
	d := NewDeduplicator(5 * time.Second)
	now := time.Now()

	if !d.ShouldSubmit("34ABC123", now) {
		t.Fatal("first sighting must be submitted")
	}
}

func TestDeduplicatorSuppressesWithinWindow(t *testing.T) {
	d := NewDeduplicator(5 * time.Second)
	now := time.Now()

	d.MarkSubmitted("34ABC123", now)

	if d.ShouldSubmit("34ABC123", now.Add(2*time.Second)) {
		t.Fatal("sighting inside the window must be suppressed")
	}
	if d.ShouldSubmit("34ABC123", now.Add(5*time.Second)) {
		t.Fatal("sighting exactly at the window boundary must be suppressed")
	}
	if !d.ShouldSubmit("34ABC123", now.Add(5*time.Second+time.Millisecond)) {
		t.Fatal("sighting past the window must be submitted")
	}
}

func TestDeduplicatorKeysByPlateText(t *testing.T) {
	d := NewDeduplicator(5 * time.Second)
	now := time.Now()

	d.MarkSubmitted("34ABC123", now)

	if !d.ShouldSubmit("06XYZ421", now.Add(time.Second)) {
		t.Fatal("a different plate must not be suppressed")
	}
}

func TestDeduplicatorUnmarkedFailureRetries(t *testing.T) {
	// A failed submission never calls MarkSubmitted, so the same plate
	// stays eligible on the very next frame.
	d := NewDeduplicator(5 * time.Second)
	now := time.Now()

	if !d.ShouldSubmit("34ABC123", now) {
		t.Fatal("first sighting must be submitted")
	}
	// No MarkSubmitted: the submission failed.
	if !d.ShouldSubmit("34ABC123", now.Add(100*time.Millisecond)) {
		t.Fatal("plate must stay eligible after a failed submission")
	}
}
