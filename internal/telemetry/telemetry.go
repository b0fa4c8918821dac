// Package telemetry collects the statements a session sends to its database.
//
// Events are kept in process only. They back the `--stats` output of the CLI
// and let tests observe how many round trips an evaluation performed.
package telemetry

import (
	"sync"
	"time"
)

// EventType classifies a recorded statement.
type EventType string

const (
	// Query is a statement returning rows.
	Query EventType = "query"
	// Exec is a statement run for its effect (DDL, INSERT).
	Exec EventType = "exec"
	// Commit and Rollback end a transaction.
	Commit   EventType = "commit"
	Rollback EventType = "rollback"
)

// Event is one statement sent to the database.
type Event struct {
	Type      EventType
	SQL       string
	Args      int
	Rows      int
	Duration  time.Duration
	Error     string
	Timestamp time.Time
}

// Summary aggregates the recorded events.
type Summary struct {
	Queries  int
	Execs    int
	Errors   int
	Duration time.Duration
}

// Collector records events. The zero value is not usable; use NewCollector.
// A nil *Collector ignores every call.
type Collector struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewCollector creates a collector keeping at most limit events. A limit of
// zero keeps everything.
func NewCollector(limit int) *Collector {
	return &Collector{events: make([]Event, 0, 64), limit: limit}
}

// Record adds an event, timestamping it if needed.
func (c *Collector) Record(e Event) {
	if c == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, e)
	if c.limit > 0 && len(c.events) > c.limit {
		c.events = c.events[len(c.events)-c.limit:]
	}
}

// RecordStatement records a statement with the time elapsed since start.
func (c *Collector) RecordStatement(t EventType, sql string, args int, rows int, start time.Time, err error) {
	e := Event{Type: t, SQL: sql, Args: args, Rows: rows, Duration: time.Since(start)}
	if err != nil {
		e.Error = err.Error()
	}
	c.Record(e)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Count returns the number of recorded events of type t.
func (c *Collector) Count(t EventType) int {
	n := 0
	for _, e := range c.Events() {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Reset drops every recorded event.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}

// Summarize aggregates the recorded events.
func (c *Collector) Summarize() Summary {
	var s Summary
	for _, e := range c.Events() {
		switch e.Type {
		case Query:
			s.Queries++
		case Exec:
			s.Execs++
		}
		if e.Error != "" {
			s.Errors++
		}
		s.Duration += e.Duration
	}
	return s
}
