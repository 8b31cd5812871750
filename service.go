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

package ledger

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomoncle/ledger/config"
	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
	"github.com/tomoncle/ledger/storage/bunstore"
	"github.com/tomoncle/ledger/storage/memory"
	"github.com/uptrace/bun"
)

type Service interface {
	// Transfer moves amount between two accounts atomically.
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (*model.TransferRecord, error)

	// Submit applies a transfer request, honoring its idempotency key.
	Submit(ctx context.Context, req engine.TransferRequest) (*model.TransferRecord, error)

	// OpenAccount creates an account with a non-negative opening balance.
	OpenAccount(ctx context.Context, owner string, initial decimal.Decimal) (model.AccountView, error)

	// GetAccount returns one account.
	GetAccount(ctx context.Context, id int64) (model.AccountView, error)

	// ListAccounts returns every account ordered by id.
	ListAccounts(ctx context.Context) ([]model.AccountView, error)

	// ListTransfersSince yields committed transfers at or after since.
	ListTransfersSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error]
}

var _ Service = (*engine.Engine)(nil)

type lazyService struct {
	opts []engine.Option
	once sync.Once
	eng  *engine.Engine
}

// NewService returns a Service over the global database connection. The
// connection is looked up on first use, so InitDB may run afterwards.
func NewService(opts ...engine.Option) Service {
	return &lazyService{opts: opts}
}

// NewServiceWithDB returns a Service over db.
func NewServiceWithDB(db *bun.DB, opts ...engine.Option) Service {
	return engine.New(bunstore.New(db), opts...)
}

// NewMemoryService returns a Service that keeps everything in process memory.
func NewMemoryService(opts ...engine.Option) Service {
	return engine.New(memory.New(), opts...)
}

func (s *lazyService) engine() *engine.Engine {
	s.once.Do(func() { s.eng = engine.New(bunstore.New(database.GetDB()), s.opts...) })
	return s.eng
}

func (s *lazyService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (*model.TransferRecord, error) {
	return s.engine().Transfer(ctx, fromID, toID, amount)
}

func (s *lazyService) Submit(ctx context.Context, req engine.TransferRequest) (*model.TransferRecord, error) {
	return s.engine().Submit(ctx, req)
}

func (s *lazyService) OpenAccount(ctx context.Context, owner string, initial decimal.Decimal) (model.AccountView, error) {
	return s.engine().OpenAccount(ctx, owner, initial)
}

func (s *lazyService) GetAccount(ctx context.Context, id int64) (model.AccountView, error) {
	return s.engine().GetAccount(ctx, id)
}

func (s *lazyService) ListAccounts(ctx context.Context) ([]model.AccountView, error) {
	return s.engine().ListAccounts(ctx)
}

func (s *lazyService) ListTransfersSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error] {
	return s.engine().ListTransfersSince(ctx, since)
}

// Seed opens the given accounts, in order, only when the ledger has none.
// It reports whether anything was created.
func Seed(ctx context.Context, svc Service, seeds []config.SeedAccount) (bool, error) {
	if len(seeds) == 0 {
		return false, nil
	}
	existing, err := svc.ListAccounts(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, s := range seeds {
		if _, err := svc.OpenAccount(ctx, s.Owner, s.Balance); err != nil {
			return false, fmt.Errorf("seed account %q: %w", s.Owner, err)
		}
	}
	return true, nil
}
