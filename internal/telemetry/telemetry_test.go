package telemetry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nosyt-lien/preql/internal/telemetry"
)

func TestCollector(t *testing.T) {
	c := telemetry.NewCollector(0)
	start := time.Now()
	c.RecordStatement(telemetry.Query, "SELECT 1", 0, 1, start, nil)
	c.RecordStatement(telemetry.Exec, "CREATE TABLE t (x INT)", 0, 0, start, nil)
	c.RecordStatement(telemetry.Query, "SELECT nope", 0, 0, start, errors.New("no such column"))

	assert.Equal(t, 2, c.Count(telemetry.Query))
	assert.Equal(t, 1, c.Count(telemetry.Exec))

	s := c.Summarize()
	assert.Equal(t, 2, s.Queries)
	assert.Equal(t, 1, s.Execs)
	assert.Equal(t, 1, s.Errors)

	events := c.Events()
	assert.Equal(t, "no such column", events[2].Error)
	assert.False(t, events[0].Timestamp.IsZero())

	c.Reset()
	assert.Empty(t, c.Events())
}

func TestCollector_Limit(t *testing.T) {
	c := telemetry.NewCollector(2)
	for _, sql := range []string{"a", "b", "c"} {
		c.Record(telemetry.Event{Type: telemetry.Query, SQL: sql})
	}
	events := c.Events()
	assert.Len(t, events, 2)
	assert.Equal(t, "b", events[0].SQL)
	assert.Equal(t, "c", events[1].SQL)
}

func TestCollector_Nil(t *testing.T) {
	var c *telemetry.Collector
	c.Record(telemetry.Event{Type: telemetry.Query})
	assert.Equal(t, 0, c.Count(telemetry.Query))
	assert.Nil(t, c.Events())
}
