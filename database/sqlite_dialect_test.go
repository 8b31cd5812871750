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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type exactAmount struct {
	bun.BaseModel `bun:"table:exact_amounts"`

	ID     int64           `bun:"id,pk,autoincrement"`
	Amount decimal.Decimal `bun:"amount,type:numeric(20,4),notnull"`
	Ratio  decimal.Decimal `bun:"ratio,type:DECIMAL(10,2)"`
	Label  string          `bun:"label"`
}

func TestSQLiteExactNumericColumnsAreText(t *testing.T) {
	db := openTestDB(t)

	ddl := db.NewCreateTable().Model((*exactAmount)(nil)).String()
	assert.Contains(t, ddl, `"amount" TEXT NOT NULL`)
	assert.Contains(t, ddl, `"ratio" TEXT`)
	assert.NotContains(t, ddl, "numeric")
	assert.Contains(t, ddl, `"label" VARCHAR`)
}

func TestSQLiteKeepsSixteenDigitDecimals(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.NewCreateTable().Model((*exactAmount)(nil)).Exec(ctx)
	require.NoError(t, err)

	want := decimal.RequireFromString("1234567890123.4567")
	row := &exactAmount{Amount: want, Ratio: decimal.RequireFromString("0.01")}
	_, err = db.NewInsert().Model(row).Exec(ctx)
	require.NoError(t, err)

	got := new(exactAmount)
	require.NoError(t, db.NewSelect().Model(got).Where("id = ?", row.ID).Scan(ctx))
	assert.True(t, want.Equal(got.Amount), "got %s", got.Amount)
}

func TestIsExactNumeric(t *testing.T) {
	for typ, want := range map[string]bool{
		"numeric(20,4)": true,
		" DECIMAL(8,2)": true,
		"NUMERIC":       true,
		"integer":       false,
		"varchar":       false,
		"":              false,
	} {
		assert.Equal(t, want, isExactNumeric(typ), typ)
	}
}
