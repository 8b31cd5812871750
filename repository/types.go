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

package repository

import (
	"context"

	"github.com/tomoncle/ledger/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	// GetOneForUpdate reads a row and locks it until the surrounding
	// transaction ends, on dialects that support SELECT ... FOR UPDATE.
	GetOneForUpdate(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context, orders ...string) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter, orders ...string) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	Create(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	// Update writes the given columns, or all columns when none are given,
	// and returns the number of rows changed.
	Update(ctx context.Context, entity *T, columns ...string) (int64, error)

	Delete(ctx context.Context, id any) (int64, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Seek returns up to limit rows with id greater than afterID in id order.
	// Pass the last id of one batch as afterID of the next.
	Seek(ctx context.Context, filter *types.QueryFilter, afterID int64, limit int) ([]*T, error)
}

// Repository combines CRUD and pagination and exposes Bun query builders
// bound to the same connection or transaction.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	WithTx(tx bun.IDB) Repository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
