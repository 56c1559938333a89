package model

import (
	"sync"
	"testing"
	"time"
)

func modelAt(version string, updatedAt time.Time) *Model {
	m := Empty()
	m.Version = version
	m.UpdatedAt = updatedAt
	return m
}

func TestHolderStartsEmpty(t *testing.T) {
	h := NewHolder()

	cur := h.Current()
	if cur == nil {
		t.Fatal("Current returned nil")
	}
	if cur.Version != "empty" {
		t.Errorf("expected empty model, got version %q", cur.Version)
	}
	if !cur.UpdatedAt.IsZero() {
		t.Errorf("expected zero UpdatedAt, got %v", cur.UpdatedAt)
	}
}

func TestHolderSwapIsVisible(t *testing.T) {
	h := NewHolder()
	next := modelAt("v1", time.Now())

	h.Swap(next)

	if h.Current() != next {
		t.Error("Current did not return the swapped model")
	}
}

func TestCompareAndPublishRejectsStale(t *testing.T) {
	h := NewHolder()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	if !h.CompareAndPublish(modelAt("v2", base)) {
		t.Fatal("publish of newer model rejected")
	}

	// Same timestamp is stale, strictly-newer only.
	if h.CompareAndPublish(modelAt("v2-again", base)) {
		t.Error("publish with equal UpdatedAt accepted")
	}
	if h.CompareAndPublish(modelAt("v1", base.Add(-time.Hour))) {
		t.Error("publish with older UpdatedAt accepted")
	}

	if h.Current().Version != "v2" {
		t.Errorf("expected held model v2, got %q", h.Current().Version)
	}
}

func TestCompareAndPublishConverges(t *testing.T) {
	h := NewHolder()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	// Publish 50 candidates with distinct timestamps from concurrent
	// goroutines; the holder must end on the newest regardless of order.
	candidates := make([]*Model, 50)
	for i := range candidates {
		candidates[i] = modelAt("v", base.Add(time.Duration(i)*time.Second))
	}

	var wg sync.WaitGroup
	for _, m := range candidates {
		wg.Add(1)
		go func(m *Model) {
			defer wg.Done()
			h.CompareAndPublish(m)
		}(m)
	}
	wg.Wait()

	got := h.Current().UpdatedAt
	want := candidates[len(candidates)-1].UpdatedAt
	if !got.Equal(want) {
		t.Errorf("holder ended on %v, want newest %v", got, want)
	}
}
