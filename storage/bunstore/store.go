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

// Package bunstore implements engine.UnitOfWork on a Bun database
// (postgres, mysql or sqlite) through the generic repository.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
	"github.com/tomoncle/ledger/repository"
	"github.com/tomoncle/ledger/types"
	"github.com/uptrace/bun"
)

// DefaultBatchSize is the page size ListSince reads the log with.
const DefaultBatchSize = 500

// Store is a UnitOfWork over a Bun handle. The root Store runs each call as
// its own statement; Begin opens a database transaction.
type Store struct {
	db        *bun.DB
	conn      bun.IDB
	tx        *bun.Tx
	done      bool
	batchSize int
}

var _ engine.UnitOfWork = (*Store)(nil)

type Option func(*Store)

// WithBatchSize sets how many log records ListSince fetches per query.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, conn: db, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts a transaction. Calling Begin inside a transaction returns the
// same transaction.
func (s *Store) Begin(ctx context.Context) (engine.UnitOfWork, error) {
	if s.tx != nil {
		return s, nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Store{db: s.db, conn: tx, tx: &tx, batchSize: s.batchSize}, nil
}

func (s *Store) Commit(context.Context) error {
	if s.tx == nil || s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit()
}

func (s *Store) Rollback(context.Context) error {
	if s.tx == nil || s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (s *Store) Accounts() engine.AccountStore {
	return &accountStore{
		repo:   repository.NewRepository[model.Account](s.conn),
		locked: s.tx != nil,
	}
}

func (s *Store) Transfers() engine.TransferLog {
	return &transferLog{
		repo:      repository.NewRepository[model.TransferRecord](s.conn),
		batchSize: s.batchSize,
	}
}

type accountStore struct {
	repo   repository.Repository[model.Account]
	locked bool
}

func (a *accountStore) Get(ctx context.Context, id int64) (*model.Account, error) {
	var (
		acc *model.Account
		err error
	)
	if a.locked {
		acc, err = a.repo.GetOneForUpdate(ctx, id)
	} else {
		acc, err = a.repo.GetOne(ctx, id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return acc, nil
}

func (a *accountStore) Put(ctx context.Context, account *model.Account) error {
	n, err := a.repo.Update(ctx, account, "owner", "balance", "updated_at")
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return engine.ErrNoRecord
	}
	return nil
}

func (a *accountStore) Insert(ctx context.Context, account *model.Account) error {
	return translate(a.repo.Create(ctx, account))
}

func (a *accountStore) List(ctx context.Context) ([]*model.Account, error) {
	accounts, err := a.repo.GetAll(ctx, "id ASC")
	if err != nil {
		return nil, translate(err)
	}
	return accounts, nil
}

type transferLog struct {
	repo      repository.Repository[model.TransferRecord]
	batchSize int
}

func (l *transferLog) Append(ctx context.Context, record *model.TransferRecord) error {
	return translate(l.repo.Create(ctx, record))
}

func (l *transferLog) FindByKey(ctx context.Context, key string) (*model.TransferRecord, error) {
	records, err := l.repo.List(ctx, types.NewQueryFilter("idempotency_key = ?", key))
	if err != nil {
		return nil, translate(err)
	}
	if len(records) == 0 {
		return nil, engine.ErrNoRecord
	}
	return records[0], nil
}

// ListSince reads the log in batches keyed on the last id seen, so memory
// stays bounded by the batch size. Each range starts again from the first row.
func (l *transferLog) ListSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error] {
	return func(yield func(*model.TransferRecord, error) bool) {
		filter := types.NewQueryFilter("created_at >= ?", since.UTC())
		var lastID int64
		for {
			batch, err := l.repo.Seek(ctx, filter, lastID, l.batchSize)
			if err != nil {
				yield(nil, translate(err))
				return
			}
			for _, rec := range batch {
				if !yield(rec, nil) {
					return
				}
			}
			if len(batch) < l.batchSize {
				return
			}
			lastID = batch[len(batch)-1].ID
		}
	}
}

// translate maps driver errors onto the engine's storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if is, kind := database.IsSqlError(err); is {
		switch kind {
		case database.NoRowsErr:
			return engine.ErrNoRecord
		case database.DuplicateKeyErr:
			return fmt.Errorf("%w: %v", engine.ErrDuplicateKey, err)
		}
	}
	return err
}
