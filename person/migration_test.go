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
	"testing"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect"
)

func TestPersonTableDDL(t *testing.T) {
	pg, err := personTableDDL(dialect.PG)
	require.NoError(t, err)
	require.Contains(t, pg, "metadata JSONB NULL")
	require.Contains(t, pg, "TIMESTAMPTZ")

	my, err := personTableDDL(dialect.MySQL)
	require.NoError(t, err)
	require.Contains(t, my, "metadata JSON NULL")
	require.Contains(t, my, "DATETIME(6)")

	lite, err := personTableDDL(dialect.SQLite)
	require.NoError(t, err)
	require.Contains(t, lite, "version INTEGER NOT NULL DEFAULT 0")

	_, err = personTableDDL(dialect.MSSQL)
	require.Error(t, err)
}

func TestPersonMigrationIsRegistered(t *testing.T) {
	var names []string
	for _, m := range database.RegisteredMigrations() {
		names = append(names, m.Name)
	}
	require.Contains(t, names, "create_person_table")
}
