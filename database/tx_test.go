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
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockRunner(t *testing.T) (*TxRunner, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewTxRunner(db, nil), mock
}

func TestTxRunner_CommitsOnSuccess(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE person").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		_, ok := runner.Current(ctx)
		require.True(t, ok)
		_, err := db.ExecContext(ctx, "UPDATE person SET name = 'x'")
		return err
	})
	require.NoError(t, err)
}

func TestTxRunner_RollsBackAndReturnsErrorUnchanged(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		return boom
	})
	require.Same(t, boom, err)
}

func TestTxRunner_RollsBackOnPanic(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.PanicsWithValue(t, "kaboom", func() {
		_ = runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
			panic("kaboom")
		})
	})
}

func TestTxRunner_BeginAndCommitErrorsAreWrapped(t *testing.T) {
	runner, mock := newMockRunner(t)
	beginErr := errors.New("too many connections")
	mock.ExpectBegin().WillReturnError(beginErr)

	called := false
	err := runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, beginErr)
	require.False(t, called)

	commitErr := errors.New("serialization failure")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(commitErr)
	err = runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		return nil
	})
	require.ErrorIs(t, err, commitErr)
}

func TestTxRunner_RequiredJoinsOuterTransaction(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, outer bun.IDB) error {
		return runner.Run(ctx, TxDefinition{Propagation: PropagationRequired}, func(ctx context.Context, inner bun.IDB) error {
			require.Same(t, outer.(bun.Tx).Tx, inner.(bun.Tx).Tx)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTxRunner_RequiresNewStartsSecondTransaction(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectCommit()

	err := runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, outer bun.IDB) error {
		return runner.Run(ctx, TxDefinition{Propagation: PropagationRequiresNew}, func(ctx context.Context, inner bun.IDB) error {
			require.NotSame(t, outer.(bun.Tx).Tx, inner.(bun.Tx).Tx)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTxRunner_PropagationWithoutTransaction(t *testing.T) {
	runner, _ := newMockRunner(t)
	ctx := context.Background()

	err := runner.Run(ctx, TxDefinition{Propagation: PropagationMandatory}, func(context.Context, bun.IDB) error {
		t.Fatal("must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrNoTransaction)

	for _, p := range []Propagation{PropagationSupports, PropagationNever, PropagationNotSupported} {
		err := runner.Run(ctx, TxDefinition{Propagation: p}, func(ctx context.Context, db bun.IDB) error {
			_, isDB := db.(*bun.DB)
			require.True(t, isDB, p.String())
			return nil
		})
		require.NoError(t, err, p.String())
	}
}

func TestTxRunner_PropagationInsideTransaction(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := runner.Run(context.Background(), TxDefinition{}, func(ctx context.Context, outer bun.IDB) error {
		err := runner.Run(ctx, TxDefinition{Propagation: PropagationNever}, func(context.Context, bun.IDB) error {
			return nil
		})
		require.ErrorIs(t, err, ErrTransactionExists)

		for _, p := range []Propagation{PropagationSupports, PropagationMandatory} {
			err = runner.Run(ctx, TxDefinition{Propagation: p}, func(ctx context.Context, db bun.IDB) error {
				require.Same(t, outer.(bun.Tx).Tx, db.(bun.Tx).Tx)
				return nil
			})
			require.NoError(t, err)
		}

		return runner.Run(ctx, TxDefinition{Propagation: PropagationNotSupported}, func(ctx context.Context, db bun.IDB) error {
			_, active := runner.Current(ctx)
			require.False(t, active)
			require.Equal(t, runner.DB(), db)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestTxRunner_IgnoresTransactionOfOtherDatabase(t *testing.T) {
	first, mock := newMockRunner(t)
	second, _ := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := first.Run(context.Background(), TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		_, active := second.Current(ctx)
		require.False(t, active)
		return nil
	})
	require.NoError(t, err)
}

func TestTxRunner_RejectsUnknownDefinition(t *testing.T) {
	runner, _ := newMockRunner(t)
	err := runner.Run(context.Background(), TxDefinition{Propagation: Propagation(42)}, func(context.Context, bun.IDB) error {
		return nil
	})
	require.Error(t, err)
	err = runner.Run(context.Background(), TxDefinition{Isolation: Isolation(-1)}, func(context.Context, bun.IDB) error {
		return nil
	})
	require.Error(t, err)
}

func TestRunInTx(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	n, err := RunInTx(context.Background(), runner, TxDefinition{}, func(context.Context, bun.IDB) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, n)

	boom := errors.New("boom")
	n, err = RunInTx(context.Background(), runner, TxDefinition{}, func(context.Context, bun.IDB) (int, error) {
		return 9, boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, n)
}

func TestTxRunner_SQLiteRollbackDiscardsWrites(t *testing.T) {
	m := newSQLiteManager(t)
	runner := m.GetTxRunner()
	ctx := context.Background()

	_, err := m.GetDB().ExecContext(ctx, "CREATE TABLE counters (name TEXT PRIMARY KEY, n INTEGER NOT NULL)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = runner.Run(ctx, TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		if _, err := db.ExecContext(ctx, "INSERT INTO counters (name, n) VALUES ('a', 1)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, m.GetDB().NewSelect().TableExpr("counters").ColumnExpr("count(*)").Scan(ctx, &count))
	require.Zero(t, count)

	err = runner.Run(ctx, TxDefinition{}, func(ctx context.Context, db bun.IDB) error {
		_, err := db.ExecContext(ctx, "INSERT INTO counters (name, n) VALUES ('a', 1)")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, m.GetDB().NewSelect().TableExpr("counters").ColumnExpr("count(*)").Scan(ctx, &count))
	require.Equal(t, 1, count)
}

func TestIsolationAndPropagationEnums(t *testing.T) {
	iso, err := ParseIsolation("read-committed")
	require.NoError(t, err)
	require.Equal(t, IsolationReadCommitted, iso)
	require.Equal(t, sql.LevelReadCommitted, iso.Level())
	require.Equal(t, sql.LevelDefault, IsolationDefault.Level())
	require.Equal(t, "SERIALIZABLE", IsolationSerializable.String())

	_, err = ParseIsolation("snapshot")
	require.Error(t, err)

	p, err := ParsePropagation("requires_new")
	require.NoError(t, err)
	require.Equal(t, PropagationRequiresNew, p)
	require.Equal(t, PropagationRequired, TxDefinition{}.Propagation)
	require.False(t, Propagation(99).IsValid())
	require.Equal(t, "unknown", Propagation(99).Name())
}
