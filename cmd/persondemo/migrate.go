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

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
)

type migrationReport struct {
	Applied []database.Migration     `json:"applied"`
	Pending []database.MigrationItem `json:"pending"`
}

type statusReport struct {
	Health     *database.HealthStatus `json:"health"`
	Stats      *database.DBStats      `json:"stats"`
	Migrations migrationReport        `json:"migrations"`
}

func newMigrateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending schema migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, rootOpts, func(ctx context.Context) error {
				if err := database.RunMigrations(ctx); err != nil {
					return err
				}
				report, err := loadMigrationReport(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			}, skipStartupMigrations)
		},
	}
}

func newStatusCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Show database health, pool stats and migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, rootOpts, func(ctx context.Context) error {
				report, err := loadMigrationReport(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, statusReport{
					Health:     database.GetHealthStatus(ctx),
					Stats:      database.GetDatabaseStats(),
					Migrations: *report,
				})
			}, skipStartupMigrations)
		},
	}
}

func loadMigrationReport(ctx context.Context) (*migrationReport, error) {
	mm := database.NewMigrationManager(database.GetTxRunner(), database.GetLogger())
	// creates schema_migrations when status runs before the first migrate
	pending, err := mm.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return &migrationReport{Applied: applied, Pending: pending}, nil
}
