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

// Package databasetest opens throwaway SQLite databases for tests.
package databasetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewSQLite connects a manager to a private in-memory SQLite database that
// is closed when the test ends.
func NewSQLite(t testing.TB) database.AbstractDatabaseManager {
	t.Helper()
	cfg := database.DefaultConnectionConfig()
	cfg.Type = database.TypeSQLite
	cfg.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.SlowQueryTime = 0

	m := database.NewDatabaseManager(cfg)
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(func() { _ = m.Disconnect() })
	return m
}

// NewMigratedSQLite is NewSQLite followed by every registered migration.
func NewMigratedSQLite(t testing.TB) database.AbstractDatabaseManager {
	t.Helper()
	m := NewSQLite(t)
	require.NoError(t, m.RunMigrations(context.Background()))
	return m
}
