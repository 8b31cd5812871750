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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestBounds(t *testing.T) {
	p := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, DefaultPageSize, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = NewPageRequest(3, 5000, NewQueryFilter("id > ?", 1), []string{"id ASC"})
	assert.Equal(t, MaxPageSize, p.GetPageSize())
	assert.Equal(t, 2*MaxPageSize, p.GetOffset())

	next := p.Next()
	assert.Equal(t, 4, next.GetPage())
	assert.Same(t, p.GetFilter(), next.GetFilter())
	assert.Equal(t, []string{"id ASC"}, next.GetOrders())
}

func TestPaginationHasNext(t *testing.T) {
	p := &Pagination[int]{Page: 1, PageSize: 2, Total: 3}
	assert.True(t, p.HasNext())
	p.Page = 2
	assert.False(t, p.HasNext())
	assert.False(t, NewDefaultPagination[int](1, 10).HasNext())
}

func TestJsonObject(t *testing.T) {
	var empty JsonObject
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	obj := JsonObject{"ref": "INV-1", "n": 2}
	v, err = obj.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"n":2,"ref":"INV-1"}`, v)

	var back JsonObject
	require.NoError(t, back.Scan([]byte(`{"n":2,"ref":"INV-1"}`)))
	assert.True(t, obj.Equal(back))
	require.NoError(t, back.Scan(""))
	assert.Nil(t, back)
	require.NoError(t, back.Scan(nil))
	assert.Error(t, back.Scan(42))
	assert.True(t, JsonObject{}.Equal(nil))
	assert.False(t, obj.Equal(JsonObject{"ref": "INV-2"}))
}
