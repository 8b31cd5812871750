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

// Package events carries ledger domain events to the outside world.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tomoncle/ledger/model"
)

const (
	// TopicTransferCompleted is the default topic for TransferCompleted events.
	TopicTransferCompleted = "ledger.transfer_completed"

	EventTypeTransferCompleted = "ledger.TransferCompleted.v1"
)

// Publisher delivers an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// Keyed events carry a partitioning key.
type Keyed interface {
	EventKey() string
}

// Typed events carry a stable name for consumers to dispatch on.
type Typed interface {
	EventType() string
}

// TypeOf returns the event's stable name, or "" for an untyped event.
func TypeOf(event any) string {
	if t, ok := event.(Typed); ok {
		return t.EventType()
	}
	return ""
}

// TransferCompleted is emitted once per committed transfer.
type TransferCompleted struct {
	EventID        string          `json:"event_id"`
	TransferID     int64           `json:"transfer_id"`
	FromAccountID  int64           `json:"from_account_id"`
	ToAccountID    int64           `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func NewTransferCompleted(rec *model.TransferRecord) *TransferCompleted {
	return &TransferCompleted{
		EventID:        uuid.NewString(),
		TransferID:     rec.ID,
		FromAccountID:  rec.FromAccountID,
		ToAccountID:    rec.ToAccountID,
		Amount:         rec.Amount,
		IdempotencyKey: rec.IdempotencyKey,
		OccurredAt:     rec.Timestamp,
	}
}

// EventKey partitions by source account so one account's debits stay ordered.
func (e *TransferCompleted) EventKey() string {
	return strconv.FormatInt(e.FromAccountID, 10)
}

func (*TransferCompleted) EventType() string {
	return EventTypeTransferCompleted
}
