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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassifier(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want SQLError
	}{
		{"nil", nil, UnknownErr},
		{"plain", errors.New("boom"), UnknownErr},
		{"no rows", sql.ErrNoRows, NoRowsErr},
		{"pgx unique", &pgconn.PgError{Code: PgUniqueViolation}, DuplicateKeyErr},
		{"pgx wrapped unique", fmt.Errorf("insert person: %w", &pgconn.PgError{Code: "23505"}), DuplicateKeyErr},
		{"pgx not null", &pgconn.PgError{Code: PgNotNullViolation}, NotNullViolationErr},
		{"pgx other", &pgconn.PgError{Code: "40001"}, UnknownErr},
		{"pq unique", &pq.Error{Code: "23505"}, DuplicateKeyErr},
		{"pq undefined table", &pq.Error{Code: "42P01"}, NoTableErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'p1' for key 'PRIMARY'"}, DuplicateKeyErr},
		{"mysql no table", &mysql.MySQLError{Number: 1146}, NoTableErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: person.id (1555)"), DuplicateKeyErr},
		{"sqlite no table", errors.New("SQL logic error: no such table: person (1)"), NoTableErr},
		{"sqlite not null", errors.New("constraint failed: NOT NULL constraint failed: person.name (1299)"), NotNullViolationErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DefaultClassifier.Classify(tc.err))
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	require.True(t, IsDuplicateKey(&pq.Error{Code: PgUniqueViolation}))
	require.False(t, IsDuplicateKey(errors.New("connection refused")))
}

func TestClassifierFunc(t *testing.T) {
	c := ClassifierFunc(func(error) SQLError { return DuplicateKeyErr })
	require.Equal(t, DuplicateKeyErr, c.Classify(errors.New("anything")))
}

func TestSQLErrorString(t *testing.T) {
	require.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	require.Equal(t, "no_table", NoTableErr.String())
	require.Equal(t, "unknown", SQLError(-3).String())
	require.Equal(t, "unknown", SQLError(1000).String())
}
