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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func widgetMigrations(upCalls *int) MigrationRegistry {
	registry := NewMigrationRegistry()
	registry.Register(MigrationItem{
		Version: "002",
		Name:    "seed_widgets",
		Up: func(ctx context.Context, db bun.IDB) error {
			_, err := db.ExecContext(ctx, "INSERT INTO widgets (id) VALUES ('w1')")
			return err
		},
	})
	registry.Register(MigrationItem{
		Version: "001",
		Name:    "create_widgets",
		Up: func(ctx context.Context, db bun.IDB) error {
			*upCalls++
			_, err := db.ExecContext(ctx, "CREATE TABLE widgets (id TEXT PRIMARY KEY)")
			return err
		},
		Down: func(ctx context.Context, db bun.IDB) error {
			_, err := db.ExecContext(ctx, "DROP TABLE widgets")
			return err
		},
	})
	return registry
}

func TestMigrationRegistry_OrdersAndReplaces(t *testing.T) {
	registry := NewMigrationRegistry()
	registry.Register(MigrationItem{Version: "010", Name: "b"})
	registry.Register(MigrationItem{Version: "002", Name: "a"})
	registry.Register(MigrationItem{Version: "010", Name: "c"})

	items := registry.Migrations()
	require.Len(t, items, 2)
	require.Equal(t, "002", items[0].Version)
	require.Equal(t, "c", items[1].Name)
}

func TestMigrationManager_RunsOnce(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	upCalls := 0
	mm := NewMigrationManager(m.GetTxRunner(), &recordLogger{}).WithRegistry(widgetMigrations(&upCalls))

	pending, err := mm.GetPendingMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))
	require.Equal(t, 1, upCalls)

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	require.Equal(t, "001", applied[0].Version)
	require.Equal(t, "create_widgets", applied[0].Name)
	require.False(t, applied[0].AppliedAt.IsZero())

	pending, err = mm.GetPendingMigrations(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestMigrationManager_FailedMigrationIsNotRecorded(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	boom := errors.New("boom")

	registry := NewMigrationRegistry()
	registry.Register(MigrationItem{
		Version: "001",
		Name:    "broken",
		Up: func(ctx context.Context, db bun.IDB) error {
			if _, err := db.ExecContext(ctx, "CREATE TABLE half_done (id TEXT)"); err != nil {
				return err
			}
			return boom
		},
	})
	mm := NewMigrationManager(m.GetTxRunner(), nil).WithRegistry(registry)

	err := mm.RunMigrations(ctx)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "001")

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Empty(t, applied)

	_, err = m.GetDB().ExecContext(ctx, "SELECT * FROM half_done")
	require.Equal(t, NoTableErr, DefaultClassifier.Classify(err))
}

func TestMigrationManager_Rollback(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	upCalls := 0
	mm := NewMigrationManager(m.GetTxRunner(), nil).WithRegistry(widgetMigrations(&upCalls))

	require.ErrorContains(t, mm.RollbackMigration(ctx, "999"), "not registered")
	require.ErrorContains(t, mm.RollbackMigration(ctx, "002"), "no down step")
	require.NoError(t, mm.RunMigrations(ctx))

	require.NoError(t, mm.RollbackMigration(ctx, "001"))
	require.Error(t, mm.RollbackMigration(ctx, "001"))

	pending, err := mm.GetPendingMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "001", pending[0].Version)
}

func TestMigrationManager_RequiresUpStep(t *testing.T) {
	m := newSQLiteManager(t)
	registry := NewMigrationRegistry()
	registry.Register(MigrationItem{Version: "001", Name: "empty"})
	mm := NewMigrationManager(m.GetTxRunner(), nil).WithRegistry(registry)
	require.Error(t, mm.RunMigrations(context.Background()))
}
