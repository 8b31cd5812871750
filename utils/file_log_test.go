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
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestFileLogWritesOneFilePerLevel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ConfigureFileLog(dir, 7))
	t.Cleanup(func() { _ = CloseFileLog() })
	ConfigureFileLogLevel("debug")
	t.Cleanup(func() { ConfigureFileLogLevel("trace") })

	lg := NewLogger("FILE_LOG_TEST")
	lg.SetOutput(io.Discard)
	lg.SetLevel(logrus.TraceLevel)
	lg.WithField("transfer_id", 7).Info("transfer committed")
	lg.Warn("publish failed")
	lg.Error("storage unavailable")
	lg.Trace("not written")

	day := filepath.Join(dir, time.Now().Format(dayLayout))
	info := readLog(t, filepath.Join(day, "info.log"))
	assert.Contains(t, info, "transfer committed")
	assert.Contains(t, info, "transfer_id=7")
	assert.NotContains(t, info, "\x1b[")
	assert.Contains(t, readLog(t, filepath.Join(day, "warn.log")), "publish failed")
	assert.Contains(t, readLog(t, filepath.Join(day, "error.log")), "storage unavailable")
	assert.NoFileExists(t, filepath.Join(day, "trace.log"))
}

func TestFileLogStopsAfterClose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ConfigureFileLog(dir, 0))
	lg := NewLogger("FILE_LOG_CLOSED")
	lg.SetOutput(io.Discard)
	require.NoError(t, CloseFileLog())

	lg.Info("after close")
	assert.NoDirExists(t, filepath.Join(dir, time.Now().Format(dayLayout)))
}

func TestDailyLevelWriterRollsAndPrunes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2026-03-01", "2026-03-05", "archive"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	w := newDailyLevelWriter(dir, 7, func() time.Time { return now })
	defer w.Close()

	require.NoError(t, w.write(logrus.InfoLevel, []byte("first day\n")))
	assert.NoDirExists(t, filepath.Join(dir, "2026-03-01"))
	assert.DirExists(t, filepath.Join(dir, "2026-03-05"))
	assert.DirExists(t, filepath.Join(dir, "archive"))

	now = now.Add(24 * time.Hour)
	require.NoError(t, w.write(logrus.FatalLevel, []byte("second day\n")))
	assert.Equal(t, "first day\n", readLog(t, filepath.Join(dir, "2026-03-10", "info.log")))
	assert.Equal(t, "second day\n", readLog(t, filepath.Join(dir, "2026-03-11", "error.log")))
}

func TestDailyLevelWriterKeepsEverythingWithoutMaxAge(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2000-01-01"), 0o755))
	w := newDailyLevelWriter(dir, 0, time.Now)
	defer w.Close()

	require.NoError(t, w.write(logrus.DebugLevel, []byte("x\n")))
	assert.DirExists(t, filepath.Join(dir, "2000-01-01"))
}
