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
	"errors"

	"github.com/AleksanderBrzozowski/exposed-demo/types"
)

var (
	// ErrDuplicateKey is returned by Insert when the id is already stored.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrOptimisticConflict is returned by Update when no row matched the id
	// and expected version. A missing id and a stale version look the same.
	ErrOptimisticConflict = errors.New("optimistic lock conflict")
	// ErrNotFound is returned by UpdateWithRetry when the id does not exist.
	ErrNotFound = errors.New("entity not found")
)

// VersionedRow is a Bun row model with a string id and an optimistic
// version. It is implemented with value receivers.
type VersionedRow interface {
	RowID() string
	RowVersion() int
}

// Versioned is a stored row together with the version it was read at.
type Versioned[R any] struct {
	Entity  R   `json:"entity"`
	Version int `json:"version"`
}

// VersionedStore is the optimistic-locking store contract.
type VersionedStore[R VersionedRow] interface {
	// Insert stores row with version 0.
	Insert(ctx context.Context, row *R) error

	// Update writes row when its stored version equals expectedVersion and
	// bumps the version by one. It returns the affected row count.
	Update(ctx context.Context, row *R, expectedVersion int) (int64, error)

	// Find returns the row with id; found is false when it does not exist.
	Find(ctx context.Context, id string) (*Versioned[R], bool, error)

	// FindAll returns every row ordered by id.
	FindAll(ctx context.Context) ([]*R, error)

	// FindPage returns one page of rows, ordered by id unless the request
	// names an order.
	FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[R], error)
}
