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

package engine

import (
	"context"
	"sync"
	"time"
)

// lockTable hands out one exclusive lock per account id. Entries live only
// while someone holds or waits for them.
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	sem  chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int64]*accountLock)}
}

func (t *lockTable) acquire(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &accountLock{sem: make(chan struct{}, 1)}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		t.dropRef(id, l)
		t.mu.Unlock()
		return ctx.Err()
	}
}

func (t *lockTable) release(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		panic("engine: release of unlocked account")
	}
	<-l.sem
	t.dropRef(id, l)
}

func (t *lockTable) dropRef(id int64, l *accountLock) {
	l.refs--
	if l.refs == 0 {
		delete(t.locks, id)
	}
}

// acquirePair locks both accounts, lower id first, and returns the function
// that releases them. On error nothing is held.
func (t *lockTable) acquirePair(ctx context.Context, a, b int64) (func(), error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	if err := t.acquire(ctx, first); err != nil {
		return nil, err
	}
	if second == first {
		return func() { t.release(first) }, nil
	}
	if err := t.acquire(ctx, second); err != nil {
		t.release(first)
		return nil, err
	}
	return func() {
		t.release(second)
		t.release(first)
	}, nil
}

// held reports how many accounts currently have a lock entry.
func (t *lockTable) held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// monotonicClock stamps commits with strictly increasing UTC times at
// microsecond precision, the finest every backend stores. Callers serialize
// access.
type monotonicClock struct {
	now  func() time.Time
	last time.Time
}

func (c *monotonicClock) next() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
