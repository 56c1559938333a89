package velocity

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
)

func testModel() *model.Model {
	m := model.Empty()
	m.Velocity.Windows = []string{"PT5M", "PT1H"}
	m.Velocity.WindowDurations = []time.Duration{5 * time.Minute, time.Hour}
	return m
}

func TestRecordIncrementsPerEntityAndWindow(t *testing.T) {
	c := cache.NewLRUCache(100)
	rec := NewRecorder(c)
	ctx := context.Background()

	req := &domain.ScoreRequest{
		Amount:    100,
		Currency:  "USD",
		Timestamp: "2025-08-01T12:30:00Z",
		UserID:    "u1",
		DeviceID:  "d1",
		CardBin:   "421234",
	}

	rec.Record(ctx, testModel(), req)
	rec.Record(ctx, testModel(), req)

	for _, key := range []string{
		"velocity:user:u1:PT5M",
		"velocity:user:u1:PT1H",
		"velocity:device:d1:PT5M",
		"velocity:bin:421234:PT1H",
	} {
		// A third increment reveals the current count.
		count, err := c.IncrementCounter(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter(%s): %v", key, err)
		}
		if count != 3 {
			t.Errorf("counter %s = %d, want 3", key, count)
		}
	}
}

func TestRecordSkipsAbsentEntities(t *testing.T) {
	c := cache.NewLRUCache(100)
	rec := NewRecorder(c)
	ctx := context.Background()

	req := &domain.ScoreRequest{
		Amount:    100,
		Currency:  "USD",
		Timestamp: "2025-08-01T12:30:00Z",
		UserID:    "u1",
	}

	rec.Record(ctx, testModel(), req)

	count, _ := c.IncrementCounter(ctx, "velocity:device::PT5M", time.Minute)
	if count != 1 {
		t.Errorf("counter for empty device was recorded, got %d", count)
	}
}

func TestRecordWithNilCache(t *testing.T) {
	rec := NewRecorder(nil)

	// Must not panic.
	rec.Record(context.Background(), testModel(), &domain.ScoreRequest{
		Amount: 100, Currency: "USD", Timestamp: "2025-08-01T12:30:00Z", UserID: "u1",
	})
}
