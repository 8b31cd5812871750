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

package bunstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
	"github.com/tomoncle/ledger/storage/bunstore"
	"github.com/tomoncle/ledger/types"
	"github.com/uptrace/bun"
)

// openSQLite returns a migrated private in-memory database.
func openSQLite(t *testing.T) *bun.DB {
	t.Helper()
	model.Register()
	logger, _ := test.NewNullLogger()

	manager := database.NewDatabaseManager(&database.ConnectionConfig{
		Type:   "sqlite",
		DBName: uuid.NewString(),
		Memory: true,
	})
	manager.SetLogger(database.NewLogrusLogger(logger))
	ctx := context.Background()
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	require.NoError(t, manager.RunMigrations(ctx, database.MigrationOptions{}))
	return manager.GetDB()
}

func seeded(t *testing.T, opts ...bunstore.Option) (*bunstore.Store, *engine.Engine) {
	t.Helper()
	store := bunstore.New(openSQLite(t), opts...)
	logger, _ := test.NewNullLogger()
	e := engine.New(store, engine.WithLogger(logger))
	for _, a := range []struct {
		owner   string
		balance int64
	}{{"Alice", 1000}, {"Bob", 500}} {
		_, err := e.OpenAccount(context.Background(), a.owner, decimal.NewFromInt(a.balance))
		require.NoError(t, err)
	}
	return store, e
}

func TestAccountsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := bunstore.New(openSQLite(t))

	acc := &model.Account{Owner: "Alice", Balance: decimal.RequireFromString("10.25")}
	require.NoError(t, store.Accounts().Insert(ctx, acc))
	require.NotZero(t, acc.ID)
	assert.False(t, acc.CreatedAt.IsZero())

	got, err := store.Accounts().Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Owner)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("10.25")), "balance=%s", got.Balance)

	got.Balance = decimal.NewFromInt(3)
	require.NoError(t, store.Accounts().Put(ctx, got))
	again, err := store.Accounts().Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(3)))

	_, err = store.Accounts().Get(ctx, acc.ID+100)
	assert.ErrorIs(t, err, engine.ErrNoRecord)
	err = store.Accounts().Put(ctx, &model.Account{ID: acc.ID + 100, Owner: "ghost"})
	assert.ErrorIs(t, err, engine.ErrNoRecord)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := bunstore.New(openSQLite(t))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Accounts().Insert(ctx, &model.Account{Owner: "Alice", Balance: decimal.NewFromInt(1)}))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx))

	list, err := store.Accounts().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDuplicateKeyIsTranslated(t *testing.T) {
	ctx := context.Background()
	store, e := seeded(t)
	_, err := e.Submit(ctx, engine.TransferRequest{FromID: 1, ToID: 2, Amount: decimal.NewFromInt(1), IdempotencyKey: "k"})
	require.NoError(t, err)

	err = store.Transfers().Append(ctx, &model.TransferRecord{
		FromAccountID: 1, ToAccountID: 2, Amount: decimal.NewFromInt(1), IdempotencyKey: "k", Timestamp: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, engine.ErrDuplicateKey)

	found, err := store.Transfers().FindByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.ID)
	_, err = store.Transfers().FindByKey(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNoRecord)
}

func TestLedgerScenarios(t *testing.T) {
	ctx := context.Background()
	_, e := seeded(t)

	rec, err := e.Transfer(ctx, 1, 2, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)

	views, err := e.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Balance.Equal(decimal.NewFromInt(800)), "alice=%s", views[0].Balance)
	assert.True(t, views[1].Balance.Equal(decimal.NewFromInt(700)), "bob=%s", views[1].Balance)

	_, err = e.Transfer(ctx, 1, 2, decimal.NewFromInt(5000))
	assert.ErrorIs(t, err, engine.ErrInsufficientFunds)
	_, err = e.Transfer(ctx, 1, 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, engine.ErrInvalidOperation)
	_, err = e.Transfer(ctx, 999, 2, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, engine.ErrAccountNotFound)

	again, err := e.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, views, again)
}

func TestMetadataPersists(t *testing.T) {
	ctx := context.Background()
	_, e := seeded(t)
	_, err := e.Submit(ctx, engine.TransferRequest{
		FromID: 1, ToID: 2, Amount: decimal.NewFromInt(1), Metadata: types.JsonObject{"note": "rent"},
	})
	require.NoError(t, err)

	for rec, err := range e.ListTransfersSince(ctx, time.Time{}) {
		require.NoError(t, err)
		assert.Equal(t, "rent", rec.Metadata["note"])
	}
}

func TestListSincePages(t *testing.T) {
	ctx := context.Background()
	store := bunstore.New(openSQLite(t), bunstore.WithBatchSize(2))
	logger, _ := test.NewNullLogger()
	clock := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	e := engine.New(store, engine.WithLogger(logger), engine.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	for _, owner := range []string{"Alice", "Bob"} {
		_, err := e.OpenAccount(ctx, owner, decimal.NewFromInt(100))
		require.NoError(t, err)
	}
	var stamps []time.Time
	for range 5 {
		rec, err := e.Transfer(ctx, 1, 2, decimal.NewFromInt(1))
		require.NoError(t, err)
		stamps = append(stamps, rec.Timestamp)
	}

	var ids []int64
	for rec, err := range store.Transfers().ListSince(ctx, time.Time{}) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)

	ids = ids[:0]
	for rec, err := range store.Transfers().ListSince(ctx, stamps[2]) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		assert.True(t, rec.Timestamp.Equal(stamps[rec.ID-1]), "timestamp round trip")
	}
	assert.Equal(t, []int64{3, 4, 5}, ids)

	ids = ids[:0]
	for rec, err := range store.Transfers().ListSince(ctx, stamps[1]) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []int64{2, 3, 4, 5}, ids, "batch-aligned result")
}

func TestListSinceSeesTransfersCommittedBetweenBatches(t *testing.T) {
	ctx := context.Background()
	store, e := seeded(t, bunstore.WithBatchSize(2))
	for range 3 {
		_, err := e.Transfer(ctx, 1, 2, decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	var ids []int64
	for rec, err := range store.Transfers().ListSince(ctx, time.Time{}) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		if len(ids) == 1 {
			_, err := e.Transfer(ctx, 2, 1, decimal.NewFromInt(1))
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
}

func TestConcurrentTransfersOnSQLite(t *testing.T) {
	ctx := context.Background()
	_, e := seeded(t)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := int64(1), int64(2)
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := e.Transfer(ctx, from, to, decimal.NewFromInt(3))
			if err != nil && !errors.Is(err, engine.ErrInsufficientFunds) {
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	views, err := e.ListAccounts(ctx)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, v := range views {
		assert.False(t, v.Balance.IsNegative())
		sum = sum.Add(v.Balance)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(1500)), "sum=%s", sum)
}

func TestTransferKeepsSixteenDigitBalancesExact(t *testing.T) {
	ctx := context.Background()
	store := bunstore.New(openSQLite(t))
	logger, _ := test.NewNullLogger()
	e := engine.New(store, engine.WithLogger(logger))

	opening := decimal.RequireFromString("1234567890123.4567")
	a, err := e.OpenAccount(ctx, "Alice", opening)
	require.NoError(t, err)
	b, err := e.OpenAccount(ctx, "Bob", decimal.Zero)
	require.NoError(t, err)

	_, err = e.Transfer(ctx, a.ID, b.ID, decimal.RequireFromString("0.0001"))
	require.NoError(t, err)

	gotA, err := e.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := e.GetAccount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234567890123.4566", gotA.Balance.String())
	assert.Equal(t, "0.0001", gotB.Balance.String())
	assert.True(t, opening.Equal(gotA.Balance.Add(gotB.Balance)))
}

func runSeedSQL(t *testing.T, db *bun.DB) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	s := database.NewSQLInitManager(db, "prod")
	s.SetSQLRootPath(filepath.Join("..", "..", "configs", "sql"))
	s.SetLogger(database.NewLogrusLogger(logger))
	require.NoError(t, s.ExecuteInitialization(context.Background()))
}

func TestSeedSQLOpensAccountsOnlyOnEmptyLedger(t *testing.T) {
	ctx := context.Background()

	db := openSQLite(t)
	runSeedSQL(t, db)
	runSeedSQL(t, db)
	accounts, err := bunstore.New(db).Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Alice", accounts[0].Owner)
	assert.True(t, accounts[0].Balance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "Bob", accounts[1].Owner)
	assert.True(t, accounts[1].Balance.Equal(decimal.NewFromInt(500)))

	db = openSQLite(t)
	store := bunstore.New(db)
	require.NoError(t, store.Accounts().Insert(ctx, &model.Account{Owner: "Carol", Balance: decimal.NewFromInt(5)}))
	runSeedSQL(t, db)
	accounts, err = store.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Carol", accounts[0].Owner)
}
