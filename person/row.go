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
	"time"

	"github.com/AleksanderBrzozowski/exposed-demo/types"
	"github.com/uptrace/bun"
)

type personRow struct {
	bun.BaseModel `bun:"table:person,alias:p"`

	ID        string      `bun:"id,pk"`
	Name      string      `bun:"name,notnull"`
	Timestamp time.Time   `bun:"timestamp,notnull"`
	Version   int         `bun:"version,notnull"`
	Metadata  types.Jsonb `bun:"metadata"`
}

func (r personRow) RowID() string   { return r.ID }
func (r personRow) RowVersion() int { return r.Version }

// normalizeTimestamp stores instants in UTC with the microsecond precision
// every supported database keeps.
func normalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func toRow(p Person) *personRow {
	return &personRow{
		ID:        p.ID,
		Name:      p.Name,
		Timestamp: normalizeTimestamp(p.Timestamp),
		Metadata:  p.Metadata,
	}
}

func (r personRow) toPerson() Person {
	return Person{
		ID:        r.ID,
		Name:      r.Name,
		Timestamp: r.Timestamp.UTC(),
		Metadata:  r.Metadata,
	}
}

// assignPerson sets the columns an update replaces. Metadata is written
// only on insert.
func assignPerson(q *bun.UpdateQuery, r *personRow) *bun.UpdateQuery {
	return q.
		Set("? = ?", bun.Ident("name"), r.Name).
		Set("? = ?", bun.Ident("timestamp"), r.Timestamp)
}
