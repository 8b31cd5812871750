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
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type ledgerOwner struct {
	bun.BaseModel `bun:"table:test_owners,alias:o"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type ledgerEntry struct {
	bun.BaseModel `bun:"table:test_entries,alias:e"`

	ID        int64     `bun:"id,pk,autoincrement"`
	OwnerID   int64     `bun:"owner_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (*ledgerEntry) Indexes() []Index {
	return []Index{{Name: "idx_test_entries_created_at", Columns: []string{"created_at"}}}
}

func registerTestModels() {
	RegisteredModel(NewModelAdapter((*ledgerEntry)(nil), 20))
	RegisteredModel(NewModelAdapter((*ledgerOwner)(nil), 10))
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	registerTestModels()
	manager := NewDatabaseManager(&ConnectionConfig{Type: "sqlite", DBName: uuid.NewString(), Memory: true})
	logger, _ := test.NewNullLogger()
	manager.SetLogger(NewLogrusLogger(logger))
	require.NoError(t, manager.Connect(context.Background()))
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager.GetDB()
}

func quietLogger() Logger {
	logger, _ := test.NewNullLogger()
	return NewLogrusLogger(logger)
}

func tableExists(t *testing.T, db *bun.DB, name string) bool {
	t.Helper()
	var n int
	err := db.NewSelect().
		TableExpr("sqlite_master").
		ColumnExpr("count(*)").
		Where("type = ? AND name = ?", "table", name).
		Scan(context.Background(), &n)
	require.NoError(t, err)
	return n > 0
}

func TestRegistryOrder(t *testing.T) {
	registerTestModels()
	var names []string
	for _, m := range GetRegisteredModels() {
		names = append(names, modelName(m.Instance()))
	}
	assert.Less(t, indexOf(names, "ledgerOwner"), indexOf(names, "ledgerEntry"))

	r := NewModelRegistry()
	r.Register(NewModelAdapter((*ledgerOwner)(nil), 1))
	r.Register(NewModelAdapter((*ledgerOwner)(nil), 5))
	require.Len(t, r.Models(), 1)
	assert.Equal(t, 5, r.Models()[0].Priority())
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mm := NewMigrationManager(db, quietLogger(), MigrationOptions{EnableForeignKey: true})

	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))

	assert.True(t, tableExists(t, db, "test_owners"))
	assert.True(t, tableExists(t, db, "test_entries"))

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "add_foreign_keys", applied[1].Name)
}

func TestRollbackMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mm := NewMigrationManager(db, quietLogger(), MigrationOptions{})
	require.NoError(t, mm.RunMigrations(ctx))

	assert.ErrorContains(t, mm.RollbackMigration(ctx, "777"), "unknown migration")
	require.NoError(t, mm.RollbackMigration(ctx, "001"))
	assert.False(t, tableExists(t, db, "test_owners"))
	assert.ErrorContains(t, mm.RollbackMigration(ctx, "001"), "not applied")

	require.NoError(t, mm.RunMigrations(ctx))
	assert.True(t, tableExists(t, db, "test_owners"))
}

func TestSeedOnMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "001_owners.sql"), "INSERT INTO test_owners (name) VALUES ('alice');\n")

	mm := NewMigrationManager(db, quietLogger(), MigrationOptions{SeedOnMigration: true, SQLPath: root, Environment: "dev"})
	require.NoError(t, mm.RunMigrations(ctx))
	assert.ErrorContains(t, mm.RollbackMigration(ctx, "003"), "cannot be rolled back")

	n, err := db.NewSelect().Model((*ledgerOwner)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, mm.RunMigrations(ctx))
	n, err = db.NewSelect().Model((*ledgerOwner)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "seed runs once")
}

func writeSQL(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
