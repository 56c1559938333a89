// Package velocity maintains transaction observation counters per entity
// and model-configured window. The snapshot's velocity limits are carried
// but not yet consulted by the rule engine; the counters collected here are
// the data source a velocity rule will read.
//
// TODO: feed the recorded counts into a VELOCITY_LIMIT scoring rule once
// the per-window limit semantics in the model document are finalized.
package velocity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
)

// Recorder increments per-entity counters for every scored transaction.
type Recorder struct {
	cache domain.Cache
}

// NewRecorder creates a recorder backed by the given cache.
func NewRecorder(cache domain.Cache) *Recorder {
	return &Recorder{cache: cache}
}

// Record bumps the counters for the request's user, device, and card BIN in
// each of the model's velocity windows. Failures are logged and swallowed:
// observation is best-effort and must never affect a scoring response.
func (r *Recorder) Record(ctx context.Context, m *model.Model, req *domain.ScoreRequest) {
	if r.cache == nil {
		return
	}

	entities := []struct {
		kind string
		id   string
	}{
		{"user", req.UserID},
		{"device", req.DeviceID},
		{"bin", req.CardBin},
	}

	for i, window := range m.Velocity.Windows {
		if i >= len(m.Velocity.WindowDurations) {
			break
		}
		ttl := m.Velocity.WindowDurations[i]
		for _, e := range entities {
			if e.id == "" {
				continue
			}
			key := fmt.Sprintf("velocity:%s:%s:%s", e.kind, e.id, window)
			if _, err := r.cache.IncrementCounter(ctx, key, ttl); err != nil {
				slog.Warn("velocity counter increment failed",
					"key", key,
					"error", err,
				)
			}
		}
	}
}
