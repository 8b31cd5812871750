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

package database

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusAdapterFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l := NewLogrusLogger(logger)

	l.Info("Database connected", "type", "sqlite", "port", 0)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "sqlite", entry.Data["type"])
	assert.Equal(t, 0, entry.Data["port"])

	l.Warn("odd", "key", "value", "dangling")
	assert.Equal(t, "dangling", hook.LastEntry().Data["extra"])

	l.Debug("plain")
	assert.Empty(t, hook.LastEntry().Data)

	l.Error("failed", "error", "boom")
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestGetLoggerDefaultsOnce(t *testing.T) {
	first := GetLogger()
	require.NotNil(t, first)
	InitLogger(NewLogrusLogger(logrus.New()))
	assert.Same(t, first, GetLogger())
}
