package database

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nosyt-lien/preql/internal/debug"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/telemetry"
)

// Conn is the database/sql plumbing shared by every adapter: one connection,
// one implicit transaction, statement logging and telemetry.
type Conn struct {
	db        *sql.DB
	telemetry *telemetry.Collector
	log       *slog.Logger

	mu       sync.Mutex
	tx       *sql.Tx
	recovery Recovery
}

// Recovery selects how a Conn keeps its implicit transaction usable after a
// statement fails.
type Recovery int

const (
	// RecoverNone leaves the transaction as the backend left it. SQLite and
	// MySQL keep earlier statements and accept new ones.
	RecoverNone Recovery = iota
	// RecoverSavepoint runs every statement inside a savepoint and rolls
	// back to it on failure, so only the failed statement is undone.
	RecoverSavepoint
	// RecoverRollback discards the whole transaction on failure. It suits
	// backends that abort the transaction but lack savepoints.
	RecoverRollback
)

const savepoint = "preql_stmt"

// NewConn wraps db, restricting it to a single connection so that in memory
// databases and the implicit transaction see the same state.
func NewConn(db *sql.DB, cfg Config, backend string) *Conn {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return &Conn{
		db:        db,
		telemetry: cfg.Telemetry,
		log:       debug.With("backend", backend),
	}
}

// Ping checks the connection within timeout.
func (c *Conn) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}
	return nil
}

// SetRecovery sets the failure handling of later statements.
func (c *Conn) SetRecovery(r Recovery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovery = r
}

// guarded runs stmt on tx according to the recovery mode.
func (c *Conn) guarded(ctx context.Context, tx *sql.Tx, stmt func() error) error {
	if c.recovery == RecoverSavepoint {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return err
		}
	}
	err := stmt()
	switch c.recovery {
	case RecoverSavepoint:
		if err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				c.log.Warn("rollback to savepoint failed", "error", rbErr)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return err
		}
	case RecoverRollback:
		if err != nil {
			c.log.Warn("statement failed, pending changes discarded", "error", err)
			if rbErr := c.rollbackLocked(); rbErr != nil {
				c.log.Warn("rollback failed", "error", rbErr)
			}
		}
	}
	return err
}

// DB returns the underlying handle.
func (c *Conn) DB() *sql.DB { return c.db }

// txLocked returns the implicit transaction, beginning it if needed.
func (c *Conn) txLocked(ctx context.Context) (*sql.Tx, error) {
	if c.tx != nil {
		return c.tx, nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, databaseError(err, "BEGIN")
	}
	c.tx = tx
	return tx, nil
}

// Query runs a statement inside the implicit transaction and reads every row.
func (c *Conn) Query(ctx context.Context, query string, args ...interface{}) (*Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("executing sql", "sql", query, "args", args)
	start := time.Now()

	tx, err := c.txLocked(ctx)
	if err != nil {
		return nil, err
	}
	var result *Rows
	err = c.guarded(ctx, tx, func() error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		result, err = readRows(rows)
		return err
	})
	if err != nil {
		c.telemetry.RecordStatement(telemetry.Query, query, len(args), 0, start, err)
		return nil, databaseError(err, query)
	}
	c.telemetry.RecordStatement(telemetry.Query, query, len(args), result.Len(), start, nil)
	return result, nil
}

// Exec runs a statement for its effect inside the implicit transaction.
func (c *Conn) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("executing sql", "sql", query, "args", args)
	start := time.Now()

	tx, err := c.txLocked(ctx)
	if err != nil {
		return Result{}, err
	}
	var res sql.Result
	err = c.guarded(ctx, tx, func() error {
		var err error
		res, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	c.telemetry.RecordStatement(telemetry.Exec, query, len(args), 0, start, err)
	if err != nil {
		return Result{}, databaseError(err, query)
	}

	var out Result
	// Not every driver reports these; absence is not an error.
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

// Commit commits the implicit transaction, if one is open.
func (c *Conn) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	start := time.Now()
	err := c.tx.Commit()
	c.tx = nil
	c.telemetry.RecordStatement(telemetry.Commit, "COMMIT", 0, 0, start, err)
	if err != nil {
		return databaseError(err, "COMMIT")
	}
	c.log.Debug("committed")
	return nil
}

// Rollback discards the implicit transaction, if one is open.
func (c *Conn) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbackLocked()
}

func (c *Conn) rollbackLocked() error {
	if c.tx == nil {
		return nil
	}
	start := time.Now()
	err := c.tx.Rollback()
	c.tx = nil
	c.telemetry.RecordStatement(telemetry.Rollback, "ROLLBACK", 0, 0, start, err)
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return databaseError(err, "ROLLBACK")
	}
	return nil
}

// Close rolls back pending work and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rbErr := c.rollbackLocked()
	if err := c.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close database")
	}
	return rbErr
}

func readRows(rows *sql.Rows) (*Rows, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		out.Values = append(out.Values, vals)
	}
	return out, rows.Err()
}

// normalize maps driver specific representations onto the host values the
// runtime works with.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}

// databaseError wraps a driver error with the statement that caused it.
func databaseError(err error, query string) error {
	return diagnostics.Wrap(diagnostics.DatabaseError, errors.Wrapf(err, "executing %q", query), "statement failed")
}
