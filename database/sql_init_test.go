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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSQL(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSQLInitManager_ExecutesInOrder(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	root := t.TempDir()

	writeSQL(t, filepath.Join(root, "common", "002_seed.sql"), `
-- seed rows
INSERT INTO notes (id, body)
VALUES ('n1', 'env={{.ENVIRONMENT}}');
`)
	writeSQL(t, filepath.Join(root, "common", "001_schema.sql"), "CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT);\n")
	writeSQL(t, filepath.Join(root, "environments", "test", "001_extra.sql"), "INSERT INTO notes (id, body) VALUES ('n2', 'extra');\n")
	writeSQL(t, filepath.Join(root, "environments", "prod", "001_prod.sql"), "INSERT INTO notes (id, body) VALUES ('n3', 'prod');\n")
	writeSQL(t, filepath.Join(root, "common", "README.md"), "not sql")

	s := NewSQLInitManager(m.GetTxRunner(), "test")
	s.SetSQLRootPath(root)
	s.SetLogger(&recordLogger{})

	files, err := s.GetSQLFiles()
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, "001_schema.sql", files[0].Name)
	require.Equal(t, "002_seed.sql", files[1].Name)
	require.Equal(t, "test", files[2].Environment)

	require.NoError(t, s.ExecuteInitialization(ctx))

	var bodies []string
	require.NoError(t, m.GetDB().NewSelect().TableExpr("notes").Column("body").Order("id ASC").Scan(ctx, &bodies))
	require.Equal(t, []string{"env=test", "extra"}, bodies)
}

func TestSQLInitManager_StopsOnFailure(t *testing.T) {
	m := newSQLiteManager(t)
	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "001_bad.sql"), "INSERT INTO nowhere (id) VALUES (1);\n")

	s := NewSQLInitManager(m.GetTxRunner(), "")
	s.SetSQLRootPath(root)
	s.SetLogger(&recordLogger{})

	err := s.ExecuteInitialization(context.Background())
	require.ErrorContains(t, err, "001_bad.sql")
	require.Equal(t, NoTableErr, DefaultClassifier.Classify(err))
}

func TestSQLInitManager_MissingDirectories(t *testing.T) {
	m := newSQLiteManager(t)
	s := NewSQLInitManager(m.GetTxRunner(), "dev")
	s.SetSQLRootPath(filepath.Join(t.TempDir(), "absent"))
	s.SetLogger(&recordLogger{})
	require.NoError(t, s.ExecuteInitialization(context.Background()))
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements(`
-- comment
CREATE TABLE a (
  id INT
);

INSERT INTO a VALUES (1);
SELECT 1`)
	require.Equal(t, []string{
		"CREATE TABLE a ( id INT );",
		"INSERT INTO a VALUES (1);",
		"SELECT 1",
	}, stmts)
}

func TestParseFileOrder(t *testing.T) {
	require.Equal(t, 1, parseFileOrder("001_init.sql"))
	require.Equal(t, 42, parseFileOrder("42_more.sql"))
	require.Equal(t, 999, parseFileOrder("init.sql"))
}
