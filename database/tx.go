/*
 * Copyright 2025 AleksanderBrzozowski.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AleksanderBrzozowski/exposed-demo/types"
	"github.com/uptrace/bun"
)

var (
	// ErrNoTransaction is returned for PropagationMandatory outside a transaction.
	ErrNoTransaction = errors.New("no existing transaction found for propagation 'mandatory'")
	// ErrTransactionExists is returned for PropagationNever inside a transaction.
	ErrTransactionExists = errors.New("existing transaction found for propagation 'never'")
)

// Isolation is the isolation level requested for a new transaction.
type Isolation int

const (
	IsolationDefault Isolation = iota
	IsolationReadUncommitted
	IsolationReadCommitted
	IsolationRepeatableRead
	IsolationSerializable
)

var isolationTable = []types.EnumEntry{
	IsolationDefault:         {Name: "DEFAULT", Desc: "use the database default"},
	IsolationReadUncommitted: {Name: "READ_UNCOMMITTED", Desc: "dirty reads allowed"},
	IsolationReadCommitted:   {Name: "READ_COMMITTED", Desc: "only committed data is visible"},
	IsolationRepeatableRead:  {Name: "REPEATABLE_READ", Desc: "rows read once do not change"},
	IsolationSerializable:    {Name: "SERIALIZABLE", Desc: "full serial equivalence"},
}

var _ types.BaseEnum = IsolationDefault

func (i Isolation) IsValid() bool { return i >= 0 && int(i) < len(isolationTable) }
func (i Isolation) Number() int   { return int(i) }
func (i Isolation) String() string {
	return i.Name()
}

func (i Isolation) Name() string {
	if !i.IsValid() {
		return types.IllegalName
	}
	return isolationTable[i].Name
}

func (i Isolation) Desc() string {
	if !i.IsValid() {
		return types.IllegalDesc
	}
	return isolationTable[i].Desc
}

// Level maps the isolation to database/sql.
func (i Isolation) Level() sql.IsolationLevel {
	switch i {
	case IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case IsolationReadCommitted:
		return sql.LevelReadCommitted
	case IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case IsolationSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// ParseIsolation accepts names such as "read_committed" or "SERIALIZABLE".
func ParseIsolation(name string) (Isolation, error) {
	n := types.LookupEnum(isolationTable, name)
	if n == types.IllegalValue {
		return IsolationDefault, fmt.Errorf("unknown isolation level: %q", name)
	}
	return Isolation(n), nil
}

// Propagation decides how a unit of work relates to a transaction that is
// already carried by the context.
type Propagation int

const (
	// PropagationRequired joins the current transaction or starts a new one.
	PropagationRequired Propagation = iota
	// PropagationRequiresNew always starts a new transaction.
	PropagationRequiresNew
	// PropagationSupports joins the current transaction or runs without one.
	PropagationSupports
	// PropagationMandatory joins the current transaction and fails without one.
	PropagationMandatory
	// PropagationNever runs without a transaction and fails inside one.
	PropagationNever
	// PropagationNotSupported runs without a transaction, hiding the current one.
	PropagationNotSupported
)

var propagationTable = []types.EnumEntry{
	PropagationRequired:     {Name: "REQUIRED", Desc: "join or start a transaction"},
	PropagationRequiresNew:  {Name: "REQUIRES_NEW", Desc: "always start a new transaction"},
	PropagationSupports:     {Name: "SUPPORTS", Desc: "join if present, else non-transactional"},
	PropagationMandatory:    {Name: "MANDATORY", Desc: "join, fail if absent"},
	PropagationNever:        {Name: "NEVER", Desc: "non-transactional, fail if present"},
	PropagationNotSupported: {Name: "NOT_SUPPORTED", Desc: "non-transactional, suspend current"},
}

var _ types.BaseEnum = PropagationRequired

func (p Propagation) IsValid() bool { return p >= 0 && int(p) < len(propagationTable) }
func (p Propagation) Number() int   { return int(p) }
func (p Propagation) String() string {
	return p.Name()
}

func (p Propagation) Name() string {
	if !p.IsValid() {
		return types.IllegalName
	}
	return propagationTable[p].Name
}

func (p Propagation) Desc() string {
	if !p.IsValid() {
		return types.IllegalDesc
	}
	return propagationTable[p].Desc
}

// ParsePropagation accepts names such as "requires_new".
func ParsePropagation(name string) (Propagation, error) {
	n := types.LookupEnum(propagationTable, name)
	if n == types.IllegalValue {
		return PropagationRequired, fmt.Errorf("unknown propagation: %q", name)
	}
	return Propagation(n), nil
}

// TxDefinition describes how a unit of work is demarcated. The zero value is
// REQUIRED propagation with the database default isolation.
type TxDefinition struct {
	Isolation   Isolation
	Propagation Propagation
}

// TxFunc is a unit of work. db is the active transaction, or the plain
// database handle when the propagation runs without one.
type TxFunc func(ctx context.Context, db bun.IDB) error

type txHolder struct {
	db *bun.DB
	tx *bun.Tx
}

type txContextKey struct{}

// TxRunner executes units of work with transaction propagation semantics.
// The active transaction travels in the context, so nested Run calls made
// with that context can join it.
type TxRunner struct {
	db     *bun.DB
	logger Logger
}

// NewTxRunner returns a runner for db. A nil logger disables logging.
func NewTxRunner(db *bun.DB, logger Logger) *TxRunner {
	return &TxRunner{db: db, logger: logger}
}

// DB returns the underlying database handle.
func (r *TxRunner) DB() *bun.DB { return r.db }

// Current returns the transaction of this runner's database carried by ctx.
func (r *TxRunner) Current(ctx context.Context) (bun.Tx, bool) {
	h, ok := ctx.Value(txContextKey{}).(*txHolder)
	if !ok || h == nil || h.tx == nil || h.db != r.db {
		return bun.Tx{}, false
	}
	return *h.tx, true
}

// Conn returns the active transaction from ctx, or the database itself.
func (r *TxRunner) Conn(ctx context.Context) bun.IDB {
	if tx, ok := r.Current(ctx); ok {
		return tx
	}
	return r.db
}

// Run executes fn according to def. Errors returned by fn are passed back
// unchanged; a new transaction is committed when fn succeeds and rolled back
// when it fails or panics.
func (r *TxRunner) Run(ctx context.Context, def TxDefinition, fn TxFunc) error {
	if !def.Propagation.IsValid() {
		return fmt.Errorf("unsupported propagation: %d", def.Propagation)
	}
	if !def.Isolation.IsValid() {
		return fmt.Errorf("unsupported isolation: %d", def.Isolation)
	}
	current, active := r.Current(ctx)

	switch def.Propagation {
	case PropagationRequired:
		if active {
			return fn(ctx, current)
		}
		return r.runInNewTx(ctx, def, fn)
	case PropagationRequiresNew:
		return r.runInNewTx(ctx, def, fn)
	case PropagationSupports:
		if active {
			return fn(ctx, current)
		}
		return fn(ctx, r.db)
	case PropagationMandatory:
		if !active {
			return ErrNoTransaction
		}
		return fn(ctx, current)
	case PropagationNever:
		if active {
			return ErrTransactionExists
		}
		return fn(ctx, r.db)
	default: // PropagationNotSupported
		return fn(context.WithValue(ctx, txContextKey{}, (*txHolder)(nil)), r.db)
	}
}

func (r *TxRunner) runInNewTx(ctx context.Context, def TxDefinition, fn TxFunc) (err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: def.Isolation.Level()})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	r.debug("Transaction started", "isolation", def.Isolation, "propagation", def.Propagation)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.warn("Failed to rollback transaction", "error", rbErr)
			}
			r.debug("Transaction rolled back", "error", err)
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
			return
		}
		r.debug("Transaction committed")
	}()

	txCtx := context.WithValue(ctx, txContextKey{}, &txHolder{db: r.db, tx: &tx})
	return fn(txCtx, tx)
}

func (r *TxRunner) debug(msg string, fields ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, fields...)
	}
}

func (r *TxRunner) warn(msg string, fields ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, fields...)
	}
}

// RunInTx runs fn through the runner and returns its result. On any error
// the zero value of T is returned.
func RunInTx[T any](ctx context.Context, r *TxRunner, def TxDefinition, fn func(ctx context.Context, db bun.IDB) (T, error)) (T, error) {
	var out T
	err := r.Run(ctx, def, func(ctx context.Context, db bun.IDB) error {
		v, err := fn(ctx, db)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
