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
	"fmt"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const tableName = "person"

func init() {
	database.RegisterMigration(database.MigrationItem{
		Version:     "001",
		Name:        "create_person_table",
		Description: "Create the person table",
		Up:          createPersonTable,
		Down:        dropPersonTable,
	})
}

// personTableDDL returns the CREATE TABLE statement for the dialect. The
// metadata column uses the native JSON type where there is one.
func personTableDDL(name dialect.Name) (string, error) {
	switch name {
	case dialect.PG:
		return `CREATE TABLE IF NOT EXISTS person (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	"timestamp" TIMESTAMPTZ NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	metadata JSONB NULL
)`, nil
	case dialect.MySQL:
		return "CREATE TABLE IF NOT EXISTS person (\n" +
			"\tid VARCHAR(255) PRIMARY KEY,\n" +
			"\tname TEXT NOT NULL,\n" +
			"\t`timestamp` DATETIME(6) NOT NULL,\n" +
			"\tversion INT NOT NULL DEFAULT 0,\n" +
			"\tmetadata JSON NULL\n" +
			")", nil
	case dialect.SQLite:
		return `CREATE TABLE IF NOT EXISTS person (
	id TEXT PRIMARY KEY NOT NULL,
	name TEXT NOT NULL,
	"timestamp" TIMESTAMP NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	metadata JSON NULL
)`, nil
	default:
		return "", fmt.Errorf("person table: unsupported dialect %s", name)
	}
}

func createPersonTable(ctx context.Context, db bun.IDB) error {
	ddl, err := personTableDDL(db.Dialect().Name())
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, ddl)
	return err
}

func dropPersonTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDropTable().Table(tableName).IfExists().Exec(ctx)
	return err
}
