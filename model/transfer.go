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
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/types"
	"github.com/uptrace/bun"
)

// TransferRecord is an immutable entry in the transfer log.
type TransferRecord struct {
	bun.BaseModel `bun:"table:transfers,alias:t"`

	ID             int64            `bun:"id,pk,autoincrement" json:"id"`
	FromAccountID  int64            `bun:"from_account_id,notnull" json:"from_account_id"`
	ToAccountID    int64            `bun:"to_account_id,notnull" json:"to_account_id"`
	Amount         decimal.Decimal  `bun:"amount,type:numeric(20,4),notnull" json:"amount"`
	IdempotencyKey string           `bun:"idempotency_key,unique,nullzero" json:"idempotency_key,omitempty"`
	Metadata       types.JsonObject `bun:"metadata,type:text" json:"metadata,omitempty"`
	Timestamp      time.Time        `bun:"created_at,notnull" json:"timestamp"`
}

var _ database.IndexedModel = (*TransferRecord)(nil)

// Indexes orders the log by time for ListSince scans.
func (*TransferRecord) Indexes() []database.Index {
	return []database.Index{{Name: "idx_transfers_created_at", Columns: []string{"created_at"}}}
}

// Clone returns an independent copy, metadata included.
func (t *TransferRecord) Clone() *TransferRecord {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(types.JsonObject, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// SameTransfer reports whether two records move the same amount between the
// same accounts.
func (t *TransferRecord) SameTransfer(from, to int64, amount decimal.Decimal) bool {
	return t.FromAccountID == from && t.ToAccountID == to && t.Amount.Equal(amount)
}
