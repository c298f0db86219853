/*
 * Copyright 2025 tomoncle.
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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/AleksanderBrzozowski/exposed-demo/types"
	"github.com/uptrace/bun"
)

const (
	idColumn      = "id"
	versionColumn = "version"
)

// UpdateAssigner adds the SET clauses of the mutable columns of row to q.
// The version column is set by the repository.
type UpdateAssigner[R any] func(q *bun.UpdateQuery, row *R) *bun.UpdateQuery

// VersionedRepository is a VersionedStore over the Bun model R.
type VersionedRepository[R VersionedRow] struct {
	runner     *database.TxRunner
	assign     UpdateAssigner[R]
	classifier database.ErrorClassifier
	txDef      database.TxDefinition
	logger     database.Logger
}

// Option configures a VersionedRepository.
type Option func(*options)

type options struct {
	classifier database.ErrorClassifier
	txDef      database.TxDefinition
	logger     database.Logger
}

// WithClassifier replaces database.DefaultClassifier.
func WithClassifier(c database.ErrorClassifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithTxDefinition sets the isolation and propagation of every call.
// The default is REQUIRED with the database default isolation.
func WithTxDefinition(def database.TxDefinition) Option {
	return func(o *options) { o.txDef = def }
}

func WithLogger(l database.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewVersionedRepository returns a repository running on runner. assign
// must set every mutable column except id and version.
func NewVersionedRepository[R VersionedRow](runner *database.TxRunner, assign UpdateAssigner[R], opts ...Option) *VersionedRepository[R] {
	o := options{classifier: database.DefaultClassifier}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = database.GetLogger()
	}
	return &VersionedRepository[R]{
		runner:     runner,
		assign:     assign,
		classifier: o.classifier,
		txDef:      o.txDef,
		logger:     o.logger,
	}
}

func (r *VersionedRepository[R]) Insert(ctx context.Context, row *R) error {
	return r.runner.Run(ctx, r.txDef, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewInsert().
			Model(row).
			Value(versionColumn, "?", 0).
			Exec(ctx)
		if err == nil {
			return nil
		}
		if r.classifier.Classify(err) == database.DuplicateKeyErr {
			r.logger.Debug("Duplicate key on insert", "id", (*row).RowID())
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		}
		return err
	})
}

func (r *VersionedRepository[R]) Update(ctx context.Context, row *R, expectedVersion int) (int64, error) {
	id := (*row).RowID()
	return database.RunInTx(ctx, r.runner, r.txDef, func(ctx context.Context, db bun.IDB) (int64, error) {
		q := db.NewUpdate().Model((*R)(nil))
		q = r.assign(q, row).
			Set("? = ?", bun.Ident(versionColumn), expectedVersion+1).
			Where("? = ?", bun.Ident(idColumn), id).
			Where("? = ?", bun.Ident(versionColumn), expectedVersion)

		res, err := q.Exec(ctx)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			r.logger.Debug("Optimistic lock conflict", "id", id, "expected_version", expectedVersion)
			return 0, ErrOptimisticConflict
		}
		return n, nil
	})
}

func (r *VersionedRepository[R]) Find(ctx context.Context, id string) (*Versioned[R], bool, error) {
	v, err := database.RunInTx(ctx, r.runner, r.txDef, func(ctx context.Context, db bun.IDB) (*Versioned[R], error) {
		row := new(R)
		err := db.NewSelect().
			Model(row).
			Where("? = ?", bun.Ident(idColumn), id).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &Versioned[R]{Entity: *row, Version: (*row).RowVersion()}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (r *VersionedRepository[R]) FindAll(ctx context.Context) ([]*R, error) {
	return database.RunInTx(ctx, r.runner, r.txDef, func(ctx context.Context, db bun.IDB) ([]*R, error) {
		rows := make([]*R, 0)
		err := db.NewSelect().
			Model(&rows).
			OrderExpr("? ASC", bun.Ident(idColumn)).
			Scan(ctx)
		if err != nil {
			return nil, err
		}
		return rows, nil
	})
}

// FindPage returns one page ordered by id unless page orders otherwise. A nil
// page reads the first page of DefaultPageSize.
func (r *VersionedRepository[R]) FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[R], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(1, types.DefaultPageSize)
	}
	return database.RunInTx(ctx, r.runner, r.txDef, func(ctx context.Context, db bun.IDB) (*types.Pagination[R], error) {
		rows := make([]*R, 0)
		query := db.NewSelect().Model(&rows)
		if f := page.GetFilter(); f != nil {
			query = query.Where(f.Schema, f.Args...)
		}
		pagination := types.NewDefaultPagination[R](page.GetPage(), page.GetPageSize())
		total, err := query.Count(ctx)
		if err != nil || total == 0 {
			return pagination, err
		}
		err = query.
			Order(page.GetOrders(idColumn + " ASC")...).
			Offset(page.GetOffset()).
			Limit(page.GetPageSize()).
			Scan(ctx)
		if err != nil {
			return nil, err
		}
		pagination.Total = total
		pagination.Items = rows
		return pagination, nil
	})
}
