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

package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ledger/events"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishKeyedEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w)
	ev := &events.TransferCompleted{EventID: "e1", TransferID: 4, FromAccountID: 12, ToAccountID: 3, Amount: decimal.NewFromInt(5)}

	require.NoError(t, p.Publish(context.Background(), events.TopicTransferCompleted, ev))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, events.TopicTransferCompleted, msg.Topic)
	assert.Equal(t, "12", string(msg.Key))
	assert.Equal(t, "application/json", header(msg, "content-type"))
	assert.Equal(t, events.EventTypeTransferCompleted, header(msg, "event-type"))
	assert.Contains(t, string(msg.Value), `"transfer_id":4`)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishUnkeyedAndFailures(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w)
	require.NoError(t, p.Publish(context.Background(), "audit", map[string]int{"n": 1}))
	assert.Nil(t, w.msgs[0].Key)
	assert.Empty(t, header(w.msgs[0], "event-type"))
	assert.Equal(t, "application/json", header(w.msgs[0], "content-type"))

	assert.ErrorContains(t, p.Publish(context.Background(), "audit", make(chan int)), "encode event")

	w.err = errors.New("leader not available")
	err := p.Publish(context.Background(), "audit", map[string]int{})
	assert.ErrorIs(t, err, w.err)
}

func TestNewPublisherBuildsWriter(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"})
	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, kw.RequiredAcks)
	assert.Equal(t, "localhost:9092", kw.Addr.String())
	require.NoError(t, p.Close())
}
