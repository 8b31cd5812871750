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

package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ledger"
	"github.com/tomoncle/ledger/config"
	"github.com/tomoncle/ledger/events"
	"github.com/tomoncle/ledger/events/kafka"
)

func TestNewPublisher(t *testing.T) {
	logger, _ := test.NewNullLogger()

	p, closeFn := newPublisher(config.EventsConfig{}, logger)
	assert.IsType(t, &events.LogPublisher{}, p)
	closeFn()

	p, closeFn = newPublisher(config.EventsConfig{Brokers: []string{"localhost:9092"}}, logger)
	assert.IsType(t, &kafka.Publisher{}, p)
	closeFn()
}

func TestLogBalances(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	svc := ledger.NewMemoryService()
	_, err := ledger.Seed(ctx, svc, []config.SeedAccount{
		{Owner: "Alice", Balance: decimal.NewFromInt(1000)},
		{Owner: "Bob", Balance: decimal.NewFromInt(500)},
	})
	require.NoError(t, err)

	require.NoError(t, logBalances(ctx, svc, logger))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice", entries[0].Data["owner"])
	assert.Equal(t, "1000", entries[0].Data["balance"])
	assert.Equal(t, "Bob", entries[1].Data["owner"])
	assert.Equal(t, "500", entries[1].Data["balance"])
}
