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

// Package person stores Person records in the "person" table with
// optimistic locking.
package person

import (
	"time"

	"github.com/AleksanderBrzozowski/exposed-demo/repository"
	"github.com/AleksanderBrzozowski/exposed-demo/types"
)

var (
	ErrDuplicatePerson = repository.ErrDuplicateKey
	ErrOptimisticLock  = repository.ErrOptimisticConflict
	ErrPersonNotFound  = repository.ErrNotFound
)

// Person is the stored entity. Metadata is an opaque JSON document; nil
// is stored as NULL.
type Person struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Timestamp time.Time   `json:"timestamp"`
	Metadata  types.Jsonb `json:"metadata"`
}

// VersionedPerson is a Person together with the version it was read at.
// Pass Version as the expected version of the next update.
type VersionedPerson struct {
	Person  Person `json:"person"`
	Version int    `json:"version"`
}
