// Package update implements the model update pipeline: notifications in,
// compiled snapshots out through the monotonicity guard.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
)

var (
	// ErrQueueFull is returned by Submit when the bounded queue is at
	// capacity. Transports treat it as a retryable delivery failure.
	ErrQueueFull = errors.New("update queue full")

	// ErrStopped is returned by Submit after Stop has begun draining.
	ErrStopped = errors.New("coordinator stopped")

	// ErrPathEscapesRoot is returned when a notice's filename resolves
	// outside the snapshot root.
	ErrPathEscapesRoot = errors.New("filename escapes snapshot root")
)

// Coordinator turns update notices into published model snapshots. Notices
// from the admin trigger and from the notification channel feed the same
// bounded queue, drained by a fixed worker pool; each job compiles the
// referenced definition and publishes through the holder's monotonicity
// guard. Replaying the same or an older notice is a safe no-op.
type Coordinator struct {
	compiler     *model.Compiler
	holder       *model.Holder
	snapshotsDir string

	jobs chan domain.UpdateNotice
	wg   sync.WaitGroup

	mu      sync.Mutex
	stopped bool

	subscriptions []domain.Subscription
}

// NewCoordinator creates a coordinator publishing to the given holder.
// queueSize bounds the pending notices.
func NewCoordinator(compiler *model.Compiler, holder *model.Holder, snapshotsDir string, queueSize int) *Coordinator {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Coordinator{
		compiler:     compiler,
		holder:       holder,
		snapshotsDir: filepath.Clean(snapshotsDir),
		jobs:         make(chan domain.UpdateNotice, queueSize),
	}
}

// Start launches the worker pool.
func (c *Coordinator) Start(workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for notice := range c.jobs {
				c.process(notice)
			}
		}()
	}
	slog.Info("update coordinator started",
		"workers", workers,
		"queue_size", cap(c.jobs),
		"snapshots_dir", c.snapshotsDir,
	)
}

// Submit enqueues an update notice. It never blocks: a full queue returns
// ErrQueueFull so the transport can redeliver.
func (c *Coordinator) Submit(notice domain.UpdateNotice) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	select {
	case c.jobs <- notice:
		return nil
	default:
		return ErrQueueFull
	}
}

// Bind subscribes the coordinator to the model-update topic. Malformed
// payloads are dropped with a log line; queue-full errors propagate to the
// bus so its delivery semantics apply.
func (c *Coordinator) Bind(ctx context.Context, bus domain.EventBus) error {
	sub, err := bus.Subscribe(ctx, domain.TopicModelUpdate, func(ctx context.Context, msg *domain.Message) error {
		var notice domain.UpdateNotice
		if err := json.Unmarshal(msg.Payload, &notice); err != nil {
			slog.Error("failed to parse update notice",
				"message_id", msg.ID,
				"error", err,
			)
			return nil
		}
		if notice.Filename == "" {
			return nil
		}
		return c.Submit(notice)
	})
	if err != nil {
		return err
	}
	c.subscriptions = append(c.subscriptions, sub)

	slog.Info("update coordinator bound", "topic", domain.TopicModelUpdate)
	return nil
}

// Bootstrap compiles the given definition file and publishes it. A failure
// is logged and returned; the holder keeps the empty model and the service
// stays up.
func (c *Coordinator) Bootstrap(filename string) error {
	path, err := c.resolve(filename)
	if err != nil {
		return err
	}

	next, err := c.compiler.Compile(path)
	if err != nil {
		return fmt.Errorf("bootstrap model %s: %w", path, err)
	}

	c.holder.Swap(next)
	slog.Info("model bootstrapped",
		"version", next.Version,
		"updated_at", next.UpdatedAt,
	)
	return nil
}

// process handles one notice: resolve, compile, publish-if-newer. Nothing
// here is allowed to take the process down; every fault is logged and the
// published state stays unchanged.
func (c *Coordinator) process(notice domain.UpdateNotice) {
	path, err := c.resolve(notice.Filename)
	if err != nil {
		slog.Error("rejected update notice",
			"filename", notice.Filename,
			"error", err,
		)
		return
	}

	next, err := c.compiler.Compile(path)
	if err != nil {
		slog.Error("model compile failed",
			"path", path,
			"error", err,
		)
		return
	}

	if !c.holder.CompareAndPublish(next) {
		slog.Debug("discarding stale model update",
			"candidate_version", next.Version,
			"candidate_updated_at", next.UpdatedAt,
			"current_version", c.holder.Current().Version,
		)
		return
	}

	slog.Info("model published",
		"version", next.Version,
		"updated_at", next.UpdatedAt,
	)
}

// resolve joins the filename with the snapshot root and rejects any result
// that escapes it.
func (c *Coordinator) resolve(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("empty filename")
	}

	path := filepath.Clean(filepath.Join(c.snapshotsDir, filename))
	rel, err := filepath.Rel(c.snapshotsDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, filename)
	}
	return path, nil
}

// Stop drains the queue and waits for in-flight compiles to finish.
// Further Submits fail with ErrStopped.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.jobs)
	c.mu.Unlock()

	for _, sub := range c.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	c.subscriptions = nil

	c.wg.Wait()
	slog.Info("update coordinator stopped")
}
