/*
Package relay forwards generated tokens to clients as they arrive.

Every event is one JSON object per line. Stage events carry the stage key;
chat events do not. A client that stops reading is detached, but the
backend stream is still consumed so the finished text can be stored.
*/
package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Event statuses.
const (
	StatusDone    = "done"
	StatusAllDone = "all_done"
)

// Event is one line of the response stream.
type Event struct {
	Stage        string `json:"stage,omitempty"`
	Token        string `json:"token,omitempty"`
	Status       string `json:"status,omitempty"`
	FullResponse string `json:"full_response,omitempty"`
	Source       string `json:"source,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Emitter delivers events to a client.
type Emitter interface {
	Emit(Event) error
}

// NDJSONWriter writes events as newline-delimited JSON and flushes after
// each line when the writer supports it.
type NDJSONWriter struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewNDJSONWriter returns an emitter writing to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{w: w, enc: enc}
}

// Emit implements Emitter.
func (n *NDJSONWriter) Emit(e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.enc.Encode(e); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	switch f := n.w.(type) {
	case interface{ Flush() error }:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush event: %w", err)
		}
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}

// Collector keeps every emitted event in memory.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (c *Collector) Emit(e Event) error {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	return nil
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Last returns the most recent event.
func (c *Collector) Last() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return Event{}, false
	}
	return c.events[len(c.events)-1], true
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) error { return nil }

// Detachable wraps an emitter and stops writing to it after the first
// failure.
type Detachable struct {
	mu       sync.Mutex
	emitter  Emitter
	detached bool
	err      error
}

// NewDetachable wraps e. A nil emitter discards events.
func NewDetachable(e Emitter) *Detachable {
	if e == nil {
		e = Discard
	}
	if d, ok := e.(*Detachable); ok {
		return d
	}
	return &Detachable{emitter: e}
}

// Emit forwards e unless the client is already detached. It reports the
// error that detached the client only once.
func (d *Detachable) Emit(e Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached {
		return nil
	}
	if err := d.emitter.Emit(e); err != nil {
		d.detached = true
		d.err = err
		return err
	}
	return nil
}

// Detached reports whether the client has gone away.
func (d *Detachable) Detached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detached
}

// Err returns the write error that detached the client.
func (d *Detachable) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}
