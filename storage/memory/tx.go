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
	"iter"
	"time"

	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
)

// tx stages writes until Commit. Reads see the committed state overlaid with
// the transaction's own puts. Row locking is left to the engine's account locks.
type tx struct {
	st      *state
	puts    map[int64]*model.Account
	inserts []*model.Account
	appends []*model.TransferRecord
	done    bool
}

func (t *tx) Begin(context.Context) (engine.UnitOfWork, error) {
	return t, nil
}

// Commit assigns ids and publishes every staged write at once.
func (t *tx) Commit(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true

	st := t.st
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, rec := range t.appends {
		if rec.IdempotencyKey == "" {
			continue
		}
		if _, ok := st.keys[rec.IdempotencyKey]; ok {
			return engine.ErrDuplicateKey
		}
	}
	for id := range t.puts {
		if _, ok := st.accounts[id]; !ok {
			return engine.ErrNoRecord
		}
	}

	for id, acc := range t.puts {
		st.accounts[id] = acc.Clone()
	}
	for _, acc := range t.inserts {
		st.accountID++
		acc.ID = st.accountID
		st.accounts[acc.ID] = acc.Clone()
	}
	for _, rec := range t.appends {
		st.recordID++
		rec.ID = st.recordID
		stored := rec.Clone()
		st.transfers = append(st.transfers, stored)
		if rec.IdempotencyKey != "" {
			st.keys[rec.IdempotencyKey] = stored
		}
	}
	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *tx) Rollback(context.Context) error {
	t.done = true
	t.puts, t.inserts, t.appends = nil, nil, nil
	return nil
}

func (t *tx) Accounts() engine.AccountStore { return txAccounts{t} }
func (t *tx) Transfers() engine.TransferLog { return txLog{t} }

type txAccounts struct{ t *tx }

func (a txAccounts) Get(_ context.Context, id int64) (*model.Account, error) {
	if acc, ok := a.t.puts[id]; ok {
		return acc.Clone(), nil
	}
	a.t.st.mu.RLock()
	defer a.t.st.mu.RUnlock()
	return a.t.st.get(id)
}

func (a txAccounts) Put(_ context.Context, account *model.Account) error {
	if a.t.done {
		return errTxDone
	}
	if _, ok := a.t.puts[account.ID]; !ok {
		a.t.st.mu.RLock()
		_, exists := a.t.st.accounts[account.ID]
		a.t.st.mu.RUnlock()
		if !exists {
			return engine.ErrNoRecord
		}
	}
	a.t.puts[account.ID] = account.Clone()
	return nil
}

// Insert stages the account; its ID is assigned on Commit.
func (a txAccounts) Insert(_ context.Context, account *model.Account) error {
	if a.t.done {
		return errTxDone
	}
	a.t.inserts = append(a.t.inserts, account)
	return nil
}

func (a txAccounts) List(ctx context.Context) ([]*model.Account, error) {
	list, err := accountReader{st: a.t.st}.List(ctx)
	if err != nil {
		return nil, err
	}
	for i, acc := range list {
		if staged, ok := a.t.puts[acc.ID]; ok {
			list[i] = staged.Clone()
		}
	}
	return list, nil
}

type txLog struct{ t *tx }

// Append stages the record; its ID is assigned on Commit.
func (l txLog) Append(_ context.Context, record *model.TransferRecord) error {
	if l.t.done {
		return errTxDone
	}
	if record.IdempotencyKey != "" {
		for _, staged := range l.t.appends {
			if staged.IdempotencyKey == record.IdempotencyKey {
				return engine.ErrDuplicateKey
			}
		}
		l.t.st.mu.RLock()
		_, exists := l.t.st.keys[record.IdempotencyKey]
		l.t.st.mu.RUnlock()
		if exists {
			return engine.ErrDuplicateKey
		}
	}
	l.t.appends = append(l.t.appends, record)
	return nil
}

func (l txLog) FindByKey(ctx context.Context, key string) (*model.TransferRecord, error) {
	for _, staged := range l.t.appends {
		if staged.IdempotencyKey == key {
			return staged.Clone(), nil
		}
	}
	return logReader{st: l.t.st}.FindByKey(ctx, key)
}

func (l txLog) ListSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error] {
	return logReader{st: l.t.st}.ListSince(ctx, since)
}
