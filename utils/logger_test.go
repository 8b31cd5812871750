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

package utils

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		" DEBUG ": logrus.DebugLevel,
		"":        logrus.InfoLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestNewLoggerIsRegisteredOnce(t *testing.T) {
	a := NewLogger("UTILS_TEST")
	b := NewLogger("UTILS_TEST")
	require.Same(t, a, b)

	require.True(t, SetLoggerLevel("UTILS_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("NO_SUCH_LOGGER", "debug"))
}

func TestLog4jColorFormatterRendersFields(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "LEDGER", NameWidth: 10, DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "transfer committed",
		Data:    logrus.Fields{"to": 2, "from": 1},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.True(t, strings.HasPrefix(line, "2026-01-02 03:04:05.000    INFO"))
	assert.Contains(t, line, "[    LEDGER]")
	assert.True(t, strings.HasSuffix(line, ": transfer committed from=1 to=2\n"), line)
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "LEDGER"}
	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.ErrorLevel,
		Message: "storage failure",
		Data:    logrus.Fields{"error": errors.New("disk full")},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "LEDGER", rec["logger"])
	assert.Equal(t, "disk full", rec["fields"].(map[string]interface{})["error"])
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_BOOL", "not-a-bool")
	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", true))
	t.Setenv("UTILS_TEST_BOOL", "false")
	assert.False(t, EnvDefaultBool("UTILS_TEST_BOOL", true))
	assert.Equal(t, "fallback", EnvDefaultString("UTILS_TEST_UNSET", "fallback"))
}
