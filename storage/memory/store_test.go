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

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
)

func account(owner string, balance int64) *model.Account {
	return &model.Account{Owner: owner, Balance: decimal.NewFromInt(balance)}
}

func TestInsertAssignsIDs(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := account("Alice", 1000), account("Bob", 500)
	require.NoError(t, s.Accounts().Insert(ctx, a))
	require.NoError(t, s.Accounts().Insert(ctx, b))
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	list, err := s.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Owner)
	assert.Equal(t, "Bob", list[1].Owner)
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Accounts().Insert(ctx, account("Alice", 10)))

	got, err := s.Accounts().Get(ctx, 1)
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(999)

	again, err := s.Accounts().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(10)))

	_, err = s.Accounts().Get(ctx, 2)
	assert.ErrorIs(t, err, engine.ErrNoRecord)
}

func TestTransactionIsInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Accounts().Insert(ctx, account("Alice", 10)))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	acc, err := tx.Accounts().Get(ctx, 1)
	require.NoError(t, err)
	acc.Balance = decimal.NewFromInt(4)
	require.NoError(t, tx.Accounts().Put(ctx, acc))
	rec := &model.TransferRecord{FromAccountID: 1, ToAccountID: 1, Amount: decimal.NewFromInt(6), Timestamp: time.Now()}
	require.NoError(t, tx.Transfers().Append(ctx, rec))

	inTx, err := tx.Accounts().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, inTx.Balance.Equal(decimal.NewFromInt(4)), "tx reads its own writes")

	outside, err := s.Accounts().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, outside.Balance.Equal(decimal.NewFromInt(10)))
	for range s.Transfers().ListSince(ctx, time.Time{}) {
		t.Fatal("uncommitted record visible")
	}

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, int64(1), rec.ID)
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	outside, err = s.Accounts().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, outside.Balance.Equal(decimal.NewFromInt(4)))
	assert.Error(t, tx.Commit(ctx))
}

func TestRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Accounts().Insert(ctx, account("Alice", 10)))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Accounts().Insert(ctx, account("Bob", 1)))
	require.NoError(t, tx.Rollback(ctx))
	assert.Error(t, tx.Commit(ctx))

	list, err := s.Accounts().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPutUnknownAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.Accounts().Put(ctx, &model.Account{ID: 9, Owner: "ghost"})
	assert.ErrorIs(t, err, engine.ErrNoRecord)
}

func TestDuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := &model.TransferRecord{FromAccountID: 1, ToAccountID: 2, IdempotencyKey: "k"}
	require.NoError(t, s.Transfers().Append(ctx, first))

	found, err := s.Transfers().FindByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	_, err = s.Transfers().FindByKey(ctx, "other")
	assert.ErrorIs(t, err, engine.ErrNoRecord)

	err = s.Transfers().Append(ctx, &model.TransferRecord{IdempotencyKey: "k"})
	assert.ErrorIs(t, err, engine.ErrDuplicateKey)

	// Two transactions racing on one key: the second commit loses.
	t1, _ := s.Begin(ctx)
	t2, _ := s.Begin(ctx)
	require.NoError(t, t1.Transfers().Append(ctx, &model.TransferRecord{IdempotencyKey: "race"}))
	require.NoError(t, t2.Transfers().Append(ctx, &model.TransferRecord{IdempotencyKey: "race"}))
	require.NoError(t, t1.Commit(ctx))
	assert.ErrorIs(t, t2.Commit(ctx), engine.ErrDuplicateKey)
}

func TestListSince(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 4 {
		rec := &model.TransferRecord{FromAccountID: 1, ToAccountID: 2, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.Transfers().Append(ctx, rec))
	}

	var ids []int64
	for rec, err := range s.Transfers().ListSince(ctx, base.Add(2*time.Minute)) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []int64{3, 4}, ids)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	for rec, err := range s.Transfers().ListSince(cancelled, base) {
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, context.Canceled)
	}
}
