package learning

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are written.
	flushInterval = 50 * time.Millisecond
)

// Tracker records stage and feedback events in the background with
// non-blocking writes.
type Tracker struct {
	storage    storage.Storage
	logger     *zap.Logger
	eventQueue chan Event
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
}

// NewTracker creates a tracker and starts its flush loop.
func NewTracker(s storage.Storage, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		storage:    s,
		logger:     logger,
		eventQueue: make(chan Event, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    s != nil,
	}

	if s != nil {
		if err := s.Init(); err != nil {
			logger.Warn("learning storage initialization failed", zap.Error(err))
			t.enabled = false
		}
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues an event. If the queue is full the event is dropped.
func (t *Tracker) Track(event Event) {
	if t == nil || !t.IsEnabled() {
		return
	}

	select {
	case t.eventQueue <- event:
	default:
		t.logger.Warn("learning queue full, dropping event")
	}
}

// Stop flushes queued events and stops the background loop.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable makes Track ignore events.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enable turns tracking back on.
func (t *Tracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = t.storage != nil
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// QueueSize returns the number of events waiting to be flushed.
func (t *Tracker) QueueSize() int {
	return len(t.eventQueue)
}

func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case event := <-t.eventQueue:
			batch = append(batch, event)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-t.stopChan:
			// drain whatever is still queued
			for {
				select {
				case event := <-t.eventQueue:
					batch = append(batch, event)
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

func (t *Tracker) flush(events []Event) {
	for _, event := range events {
		if err := event.record(t.storage); err != nil {
			t.logger.Warn("failed to record learning event", zap.Error(err))
		}
	}
}
