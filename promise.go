package preql

import (
	"context"
	"sync"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
)

// Promise is a table result that has not been fetched yet. Forcing it runs
// its query once; later calls reuse the rows.
type Promise struct {
	sess *Session
	coll *objects.Collection

	mu     sync.Mutex
	forced bool
	rows   []interface{}
}

// Type returns the Preql type of the result.
func (p *Promise) Type() string { return p.coll.T.String() }

func (p *Promise) String() string { return "<promise " + p.Type() + ">" }

// Forced reports whether the rows have been fetched.
func (p *Promise) Forced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forced
}

// SQL returns the query the promise runs when forced.
func (p *Promise) SQL() (string, error) {
	p.sess.mu.Lock()
	defer p.sess.mu.Unlock()
	q, err := p.sess.state.CompileInstance(p.coll)
	if err != nil {
		return "", err
	}
	return q.SQL, nil
}

// Rows forces the promise. Rows of one column are returned as bare values,
// others as *ordereddict.Dict.
func (p *Promise) Rows(ctx context.Context) ([]interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.forced {
		return p.rows, nil
	}

	p.sess.mu.Lock()
	v, err := p.sess.state.CastToHost(ctx, p.coll)
	p.sess.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows, _ := v.([]interface{})
	p.rows, p.forced = rows, true
	return rows, nil
}

// Len returns the number of rows. An unforced promise asks the database for
// a count instead of fetching the rows.
func (p *Promise) Len(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.forced {
		n := len(p.rows)
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	p.sess.mu.Lock()
	defer p.sess.mu.Unlock()
	st := p.sess.state
	q, err := st.Compiler().CompileFuncCall("count", []interface{}{p.coll.Frag})
	if err != nil {
		return 0, err
	}
	res, err := st.Engine().Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, err
	}
	if res.Len() == 0 || len(res.Values[0]) == 0 {
		return 0, nil
	}
	switch n := res.Values[0][0].(type) {
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, diagnostics.New(diagnostics.DatabaseError, "unexpected count %v", res.Values[0][0])
}

// At returns row i. An unforced promise fetches only that row.
func (p *Promise) At(ctx context.Context, i int) (interface{}, error) {
	if i < 0 {
		return nil, diagnostics.New(diagnostics.ValueError, "index must not be negative, got %d", i)
	}
	p.mu.Lock()
	if p.forced {
		defer p.mu.Unlock()
		if i >= len(p.rows) {
			return nil, diagnostics.New(diagnostics.ValueError, "index %d out of range", i)
		}
		return p.rows[i], nil
	}
	p.mu.Unlock()

	one := &objects.Collection{T: p.coll.T, Frag: p.coll.Frag.WithLimit(1, int64(i)), Single: true}
	p.sess.mu.Lock()
	defer p.sess.mu.Unlock()
	v, err := p.sess.state.CastToHost(ctx, one)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, diagnostics.New(diagnostics.ValueError, "index %d out of range", i)
	}
	return v, nil
}

// Each forces the promise and calls fn for every row, stopping at the first
// error.
func (p *Promise) Each(ctx context.Context, fn func(i int, row interface{}) error) error {
	rows, err := p.Rows(ctx)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if err := fn(i, r); err != nil {
			return err
		}
	}
	return nil
}

// Cursor pages through a promise without forcing all of it.
func (p *Promise) Cursor(pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Cursor{p: p, pageSize: pageSize}
}

// Cursor fetches the rows of a promise one page at a time.
type Cursor struct {
	p        *Promise
	pageSize int
	offset   int64
	done     bool
}

// Done reports whether the last page has been returned.
func (c *Cursor) Done() bool { return c.done }

// Offset returns the index of the next row.
func (c *Cursor) Offset() int64 { return c.offset }

// Next returns the next page, which is empty once the rows run out.
func (c *Cursor) Next(ctx context.Context) ([]interface{}, error) {
	if c.done {
		return nil, nil
	}
	coll := c.p.coll
	page := coll.With(coll.Frag.WithLimit(int64(c.pageSize), c.offset))

	sess := c.p.sess
	sess.mu.Lock()
	v, err := sess.state.CastToHost(ctx, page)
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows, _ := v.([]interface{})
	c.offset += int64(len(rows))
	if len(rows) < c.pageSize {
		c.done = true
	}
	return rows, nil
}
