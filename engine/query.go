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

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/tomoncle/ledger/model"
)

// ListAccounts returns a consistent snapshot of every account ordered by id.
// It never returns a partial list.
func (e *Engine) ListAccounts(ctx context.Context) ([]model.AccountView, error) {
	accounts, err := e.uow.Accounts().List(ctx)
	if err != nil {
		return nil, e.storageFailure(opList, 0, err)
	}
	views := make([]model.AccountView, len(accounts))
	for i, acc := range accounts {
		views[i] = acc.View()
	}
	return views, nil
}

func (e *Engine) GetAccount(ctx context.Context, id int64) (model.AccountView, error) {
	acc, err := e.uow.Accounts().Get(ctx, id)
	if errors.Is(err, ErrNoRecord) {
		return model.AccountView{}, newError(KindAccountNotFound, opGetAccount, id, nil)
	}
	if err != nil {
		return model.AccountView{}, e.storageFailure(opGetAccount, id, err)
	}
	return acc.View(), nil
}

// ListTransfersSince yields transfer records with Timestamp >= since in
// commit order. Ranging again restarts from the beginning.
func (e *Engine) ListTransfersSince(ctx context.Context, since time.Time) iter.Seq2[*model.TransferRecord, error] {
	return func(yield func(*model.TransferRecord, error) bool) {
		for rec, err := range e.uow.Transfers().ListSince(ctx, since) {
			if err != nil {
				yield(nil, e.storageFailure(opListLog, 0, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
