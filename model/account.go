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

package model

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Account is a named holder of a non-negative balance.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID        int64           `bun:"id,pk,autoincrement" json:"id"`
	Owner     string          `bun:"owner,notnull" json:"owner"`
	Balance   decimal.Decimal `bun:"balance,type:numeric(20,4),notnull" json:"balance"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*Account)(nil)

// BeforeAppendModel stamps UTC timestamps on inserts and updates.
func (a *Account) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = a.CreatedAt
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// Clone returns an independent copy.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// View returns the read-only projection of the account.
func (a *Account) View() AccountView {
	return AccountView{ID: a.ID, Owner: a.Owner, Balance: a.Balance}
}

// AccountView is the read model returned by queries.
type AccountView struct {
	ID      int64           `json:"id"`
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
}
