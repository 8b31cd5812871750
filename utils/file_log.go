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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

var (
	fileMu        sync.RWMutex
	fileSink      *dailyLevelWriter
	fileLogFormat = EnvDefaultString("FILE_LOG_FORMAT", "text")
	fileLogLevel  = logrus.TraceLevel
)

// ConfigureFileLog copies every logger's entries to
// <dir>/<yyyy-mm-dd>/<level>.log. When the day rolls over, day directories
// older than maxAgeDays are removed; maxAgeDays <= 0 keeps them all.
func ConfigureFileLog(dir string, maxAgeDays int) error {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", dir, err)
	}
	sink := newDailyLevelWriter(dir, maxAgeDays, time.Now)

	fileMu.Lock()
	old := fileSink
	fileSink = sink
	fileMu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

// CloseFileLog stops file logging and closes the open files.
func CloseFileLog() error {
	fileMu.Lock()
	old := fileSink
	fileSink = nil
	fileMu.Unlock()
	if old == nil {
		return nil
	}
	return old.Close()
}

// ConfigureFileLogFormat selects "json" or "text" for log files.
func ConfigureFileLogFormat(format string) {
	fileMu.Lock()
	defer fileMu.Unlock()
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		fileLogFormat = "json"
	} else {
		fileLogFormat = "text"
	}
}

// ConfigureFileLogLevel limits which entries reach the files. An entry must
// also pass its logger's own level.
func ConfigureFileLogLevel(levelStr string) {
	fileMu.Lock()
	defer fileMu.Unlock()
	fileLogLevel = ParseLogLevel(levelStr)
}

// levelWriterHook forwards a logger's entries to the active file sink.
type levelWriterHook struct {
	name string
}

func (h *levelWriterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelWriterHook) Fire(e *logrus.Entry) error {
	fileMu.RLock()
	sink, lvl, format := fileSink, fileLogLevel, fileLogFormat
	fileMu.RUnlock()
	if sink == nil || e.Level > lvl {
		return nil
	}
	b, err := fileFormatter(h.name, format).Format(e)
	if err != nil {
		return err
	}
	return sink.write(e.Level, b)
}

func fileFormatter(name, format string) logrus.Formatter {
	if format == "json" {
		return &JSONLogFormatter{LoggerName: name}
	}
	return &Log4jColorFormatter{LoggerName: name, NameWidth: 10, DisableColors: true}
}

// dailyLevelWriter keeps one file per level for the current day.
type dailyLevelWriter struct {
	baseDir    string
	maxAgeDays int
	now        func() time.Time

	mu      sync.Mutex
	curDate string
	files   map[string]*os.File
	closed  bool
}

func newDailyLevelWriter(baseDir string, maxAgeDays int, now func() time.Time) *dailyLevelWriter {
	return &dailyLevelWriter{
		baseDir:    baseDir,
		maxAgeDays: maxAgeDays,
		now:        now,
		files:      map[string]*os.File{},
	}
}

func levelFile(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warn"
	case logrus.InfoLevel:
		return "info"
	case logrus.DebugLevel:
		return "debug"
	default:
		return "trace"
	}
}

func (w *dailyLevelWriter) write(level logrus.Level, p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	now := w.now()
	date := now.Format(dayLayout)
	if date != w.curDate {
		w.closeFiles()
		w.curDate = date
		w.cleanup(now)
	}

	name := levelFile(level)
	f, ok := w.files[name]
	if !ok {
		dir := filepath.Join(w.baseDir, date)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		var err error
		f, err = os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w.files[name] = f
	}
	_, err := f.Write(p)
	return err
}

// cleanup removes day directories dated before now minus maxAgeDays.
func (w *dailyLevelWriter) cleanup(now time.Time) {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.maxAgeDays)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, now.Location())

	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := time.ParseInLocation(dayLayout, e.Name(), now.Location())
		if err != nil {
			continue
		}
		if d.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.baseDir, e.Name()))
		}
	}
}

func (w *dailyLevelWriter) closeFiles() error {
	var first error
	for name, f := range w.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(w.files, name)
	}
	return first
}

func (w *dailyLevelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.closeFiles()
}
