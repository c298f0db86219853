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

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager applies registered migrations and records them in the
// schema_migrations table.
type MigrationManager struct {
	runner   *TxRunner
	logger   Logger
	registry MigrationRegistry
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk" json:"version"`
	Name        string    `bun:"name,notnull" json:"name"`
	AppliedAt   time.Time `bun:"applied_at,notnull" json:"applied_at"`
	Description string    `bun:"description" json:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string        `json:"version"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Up          MigrationFunc `json:"-"`
	Down        MigrationFunc `json:"-"`
}

// NewMigrationManager returns a manager for the default migration registry.
func NewMigrationManager(runner *TxRunner, logger Logger) *MigrationManager {
	return &MigrationManager{
		runner:   runner,
		logger:   logger,
		registry: defaultRegistry,
	}
}

// WithRegistry replaces the registry the migrations are read from.
func (mm *MigrationManager) WithRegistry(registry MigrationRegistry) *MigrationManager {
	mm.registry = registry
	return mm
}

// RunMigrations creates the tracking table if needed and applies every
// pending migration in ascending version order. Each migration commits in
// its own transaction; applied versions are skipped.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.runner == nil {
		return errNotInitialized
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range mm.registry.Migrations() {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed!")
	}
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.runner.Conn(ctx).NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	if migration.Up == nil {
		return fmt.Errorf("migration has no up step")
	}
	def := TxDefinition{Propagation: PropagationRequiresNew}
	applied := false
	err := mm.runner.Run(ctx, def, func(ctx context.Context, db bun.IDB) error {
		exists, err := db.NewSelect().
			Model((*Migration)(nil)).
			Where("version = ?", migration.Version).
			Exists(ctx)
		if err != nil || exists {
			return err
		}

		if err := migration.Up(ctx, db); err != nil {
			return err
		}

		record := &Migration{
			Version:     migration.Version,
			Name:        migration.Name,
			AppliedAt:   time.Now().UTC(),
			Description: migration.Description,
		}
		if _, err := db.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if applied && mm.logger != nil {
		mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	}
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	migrations := make([]Migration, 0)
	err := mm.runner.Conn(ctx).NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return migrations, nil
}

// GetPendingMigrations returns registered migrations that are not applied yet.
func (mm *MigrationManager) GetPendingMigrations(ctx context.Context) ([]MigrationItem, error) {
	if err := mm.createMigrationTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(applied))
	for _, m := range applied {
		done[m.Version] = struct{}{}
	}
	pending := make([]MigrationItem, 0)
	for _, item := range mm.registry.Migrations() {
		if _, ok := done[item.Version]; !ok {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// RollbackMigration reverts an applied migration using its down step.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	var item *MigrationItem
	for _, m := range mm.registry.Migrations() {
		if m.Version == version {
			item = &m
			break
		}
	}
	if item == nil {
		return fmt.Errorf("migration %s is not registered", version)
	}
	if item.Down == nil {
		return fmt.Errorf("migration %s has no down step", version)
	}

	def := TxDefinition{Propagation: PropagationRequiresNew}
	err := mm.runner.Run(ctx, def, func(ctx context.Context, db bun.IDB) error {
		res, err := db.NewDelete().
			Model((*Migration)(nil)).
			Where("version = ?", version).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("migration %s is not applied", version)
		}
		return item.Down(ctx, db)
	})
	if err != nil {
		return err
	}
	if mm.logger != nil {
		mm.logger.Info("Migration rolled back", "version", version, "name", item.Name)
	}
	return nil
}
