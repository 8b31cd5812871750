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

// Package memory is a process-local engine.UnitOfWork. Transactions stage
// their writes and apply them under one write lock on Commit, so readers see
// either none or all of a transaction.
package memory

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
)

var errTxDone = errors.New("memory: transaction already committed or rolled back")

type state struct {
	mu        sync.RWMutex
	accounts  map[int64]*model.Account
	transfers []*model.TransferRecord
	keys      map[string]*model.TransferRecord
	accountID int64
	recordID  int64
}

// Store is the non-transactional root UnitOfWork.
type Store struct {
	st *state
}

var _ engine.UnitOfWork = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		accounts: make(map[int64]*model.Account),
		keys:     make(map[string]*model.TransferRecord),
	}}
}

func (s *Store) Begin(_ context.Context) (engine.UnitOfWork, error) {
	return &tx{st: s.st, puts: make(map[int64]*model.Account)}, nil
}

func (s *Store) Commit(context.Context) error   { return nil }
func (s *Store) Rollback(context.Context) error { return nil }

func (s *Store) Accounts() engine.AccountStore { return accountReader{st: s.st} }
func (s *Store) Transfers() engine.TransferLog { return logReader{st: s.st} }

// accountReader serves reads and single-row writes outside a transaction.
type accountReader struct {
	st *state
}

func (r accountReader) Get(_ context.Context, id int64) (*model.Account, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return r.st.get(id)
}

func (r accountReader) Put(ctx context.Context, account *model.Account) error {
	t := &tx{st: r.st, puts: map[int64]*model.Account{}}
	if err := t.Accounts().Put(ctx, account); err != nil {
		return err
	}
	return t.Commit(ctx)
}

func (r accountReader) Insert(ctx context.Context, account *model.Account) error {
	t := &tx{st: r.st, puts: map[int64]*model.Account{}}
	if err := t.Accounts().Insert(ctx, account); err != nil {
		return err
	}
	return t.Commit(ctx)
}

func (r accountReader) List(_ context.Context) ([]*model.Account, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	out := make([]*model.Account, 0, len(r.st.accounts))
	for _, acc := range r.st.accounts {
		out = append(out, acc.Clone())
	}
	slices.SortFunc(out, func(a, b *model.Account) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

type logReader struct {
	st *state
}

func (r logReader) Append(ctx context.Context, record *model.TransferRecord) error {
	t := &tx{st: r.st, puts: map[int64]*model.Account{}}
	if err := t.Transfers().Append(ctx, record); err != nil {
		return err
	}
	return t.Commit(ctx)
}

func (r logReader) FindByKey(_ context.Context, key string) (*model.TransferRecord, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	if rec, ok := r.st.keys[key]; ok {
		return rec.Clone(), nil
	}
	return nil, engine.ErrNoRecord
}

func (r logReader) ListSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error] {
	return func(yield func(*model.TransferRecord, error) bool) {
		r.st.mu.RLock()
		var snapshot []*model.TransferRecord
		for _, rec := range r.st.transfers {
			if !rec.Timestamp.Before(since) {
				snapshot = append(snapshot, rec.Clone())
			}
		}
		r.st.mu.RUnlock()

		for _, rec := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *state) get(id int64) (*model.Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, engine.ErrNoRecord
	}
	return acc.Clone(), nil
}
