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

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ledger/model"
)

func TestNewTransferCompleted(t *testing.T) {
	ts := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	rec := &model.TransferRecord{ID: 9, FromAccountID: 1, ToAccountID: 2, Amount: decimal.NewFromInt(200), IdempotencyKey: "k", Timestamp: ts}
	ev := NewTransferCompleted(rec)

	assert.NotEmpty(t, ev.EventID)
	assert.NotEqual(t, ev.EventID, NewTransferCompleted(rec).EventID)
	assert.Equal(t, int64(9), ev.TransferID)
	assert.Equal(t, "1", ev.EventKey())
	assert.Equal(t, ts, ev.OccurredAt)
	assert.Equal(t, EventTypeTransferCompleted, TypeOf(ev))
	assert.Empty(t, TypeOf(map[string]int{}))
}

func TestLogPublisher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewLogPublisher(logger)
	ev := &TransferCompleted{EventID: "e1", TransferID: 3, Amount: decimal.RequireFromString("1.5")}
	require.NoError(t, p.Publish(context.Background(), TopicTransferCompleted, ev))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Event published", entry.Message)
	assert.Equal(t, TopicTransferCompleted, entry.Data["topic"])
	assert.Equal(t, EventTypeTransferCompleted, entry.Data["type"])

	var decoded TransferCompleted
	require.NoError(t, json.Unmarshal([]byte(entry.Data["event"].(string)), &decoded))
	assert.Equal(t, int64(3), decoded.TransferID)
	assert.True(t, decoded.Amount.Equal(decimal.RequireFromString("1.5")))

	assert.Error(t, p.Publish(context.Background(), "t", func() {}))
}
