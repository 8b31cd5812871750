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
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

const slowQueryEnv = "BUNDEBUG_SLOW"

var (
	silentQueries atomic.Bool

	slowSelect = color.New(color.BgGreen, color.FgHiWhite).SprintFunc()
	slowInsert = color.New(color.BgBlue, color.FgHiWhite).SprintFunc()
	slowUpdate = color.New(color.BgYellow, color.FgHiWhite).SprintFunc()
	slowDelete = color.New(color.BgMagenta, color.FgHiWhite).SprintFunc()
	slowOther  = color.New(color.BgRed, color.FgHiWhite).SprintFunc()
)

// EnableBunSqlSilent suppresses slow query reports, e.g. while migrating.
func EnableBunSqlSilent(b bool) {
	silentQueries.Store(b)
}

// SlowQueryHook reports successful queries that ran longer than a threshold.
// BUNDEBUG_SLOW=0 disables it and BUNDEBUG_SLOW=1 enables it regardless of
// the configured state.
type SlowQueryHook struct {
	enabled  bool
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(slowTime time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{enabled: true, slowTime: slowTime, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if silentQueries.Load() || event.Err != nil || h.logger == nil {
		return
	}
	enabled := h.enabled
	if env, ok := os.LookupEnv(slowQueryEnv); ok {
		enabled = strings.TrimSpace(env) == "1"
	}
	if !enabled {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn("Slow query detected",
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.slowTime,
			"query", highlightQuery(event),
		)
	}
}

func highlightQuery(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return slowSelect(event.Query)
	case "INSERT":
		return slowInsert(event.Query)
	case "UPDATE":
		return slowUpdate(event.Query)
	case "DELETE":
		return slowDelete(event.Query)
	default:
		return slowOther(event.Query)
	}
}
