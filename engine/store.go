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

package engine

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/tomoncle/ledger/model"
)

var (
	// ErrNoRecord is returned by stores when the requested row does not exist.
	ErrNoRecord = errors.New("ledger: no record")
	// ErrDuplicateKey is returned by TransferLog.Append for a reused idempotency key.
	ErrDuplicateKey = errors.New("ledger: duplicate key")
)

// UnitOfWork groups account and log access into one atomic scope.
//
// The root value is not transactional: reads are single-statement snapshots
// and Commit and Rollback do nothing. Begin returns a transactional
// UnitOfWork whose writes become visible together on Commit. Rollback after
// Commit is a no-op.
type UnitOfWork interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	Accounts() AccountStore
	Transfers() TransferLog
}

// AccountStore holds account rows keyed by id.
type AccountStore interface {
	// Get returns a copy of the account; inside a transaction the row stays
	// locked until the transaction ends where the backend supports it.
	Get(ctx context.Context, id int64) (*model.Account, error)
	// Put overwrites owner and balance of an existing account.
	Put(ctx context.Context, account *model.Account) error
	// Insert stores a new account and assigns its ID.
	Insert(ctx context.Context, account *model.Account) error
	// List returns every account ordered by id.
	List(ctx context.Context) ([]*model.Account, error)
}

// TransferLog is the append-only record of committed transfers.
type TransferLog interface {
	// Append stores the record and assigns its ID.
	Append(ctx context.Context, record *model.TransferRecord) error
	FindByKey(ctx context.Context, key string) (*model.TransferRecord, error)
	// ListSince yields records with Timestamp >= since in commit order. Each
	// range over the returned sequence reads the log again.
	ListSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error]
}
