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
	"strings"

	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// sqliteDialect creates exact numeric columns (numeric, decimal) as TEXT.
// SQLite gives them NUMERIC affinity, which keeps only 15 significant digits
// of a non-integer value; a TEXT column stores the decimal string as written.
type sqliteDialect struct {
	*sqlitedialect.Dialect
	tables *schema.Tables
}

func newSQLiteDialect() *sqliteDialect {
	d := &sqliteDialect{Dialect: sqlitedialect.New()}
	d.tables = schema.NewTables(d)
	return d
}

func (d *sqliteDialect) Tables() *schema.Tables {
	return d.tables
}

func (d *sqliteDialect) OnTable(table *schema.Table) {
	d.Dialect.OnTable(table)
	for _, field := range table.FieldMap {
		if isExactNumeric(field.UserSQLType) {
			field.CreateTableSQLType = "TEXT"
		}
	}
}

func isExactNumeric(sqlType string) bool {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	return strings.HasPrefix(t, "numeric") || strings.HasPrefix(t, "decimal")
}
