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

package person

import (
	"context"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/AleksanderBrzozowski/exposed-demo/repository"
	"github.com/AleksanderBrzozowski/exposed-demo/types"
)

// Repository persists Person records. Every method runs in one
// transaction from the runner, joining the one carried by ctx if present.
type Repository interface {
	// Insert stores p with version 0 and fails with ErrDuplicatePerson
	// when p.ID is taken.
	Insert(ctx context.Context, p Person) error

	// Update replaces name and timestamp of p when the stored version is
	// expectedVersion and fails with ErrOptimisticLock otherwise, including
	// when p.ID does not exist.
	Update(ctx context.Context, p Person, expectedVersion int) (int64, error)

	// Find reports found == false for an unknown id.
	Find(ctx context.Context, id string) (vp *VersionedPerson, found bool, err error)

	// FindAll returns every person ordered by id.
	FindAll(ctx context.Context) ([]Person, error)

	FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[Person], error)

	// Modify applies mutate to the current state of id and writes it back,
	// retrying on ErrOptimisticLock. Changes to ID and Metadata are ignored.
	Modify(ctx context.Context, id string, mutate func(p *Person) error, opts ...repository.RetryOption) (*VersionedPerson, error)
}

type bunRepository struct {
	store *repository.VersionedRepository[personRow]
}

// NewRepository returns a Repository on runner.
func NewRepository(runner *database.TxRunner, opts ...repository.Option) Repository {
	return &bunRepository{
		store: repository.NewVersionedRepository[personRow](runner, assignPerson, opts...),
	}
}

func (r *bunRepository) Insert(ctx context.Context, p Person) error {
	return r.store.Insert(ctx, toRow(p))
}

func (r *bunRepository) Update(ctx context.Context, p Person, expectedVersion int) (int64, error) {
	return r.store.Update(ctx, toRow(p), expectedVersion)
}

func (r *bunRepository) Find(ctx context.Context, id string) (*VersionedPerson, bool, error) {
	v, ok, err := r.store.Find(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	return &VersionedPerson{Person: v.Entity.toPerson(), Version: v.Version}, true, nil
}

func (r *bunRepository) FindAll(ctx context.Context) ([]Person, error) {
	rows, err := r.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	people := make([]Person, 0, len(rows))
	for _, row := range rows {
		people = append(people, row.toPerson())
	}
	return people, nil
}

func (r *bunRepository) FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[Person], error) {
	rows, err := r.store.FindPage(ctx, page)
	if err != nil {
		return nil, err
	}
	return types.MapPagination(rows, func(row *personRow) *Person {
		p := row.toPerson()
		return &p
	}), nil
}

func (r *bunRepository) Modify(ctx context.Context, id string, mutate func(p *Person) error, opts ...repository.RetryOption) (*VersionedPerson, error) {
	v, err := repository.UpdateWithRetry[personRow](ctx, r.store, id, func(row *personRow) error {
		p := row.toPerson()
		if err := mutate(&p); err != nil {
			return err
		}
		p.ID = row.ID
		next := toRow(p)
		next.Version = row.Version
		next.Metadata = row.Metadata
		*row = *next
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	p := v.Entity.toPerson()
	return &VersionedPerson{Person: p, Version: v.Version}, nil
}
