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
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

var referentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"`
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
	Description     string `yaml:"description,omitempty"`
}

// ForeignKeyConfig is the YAML document listing foreign key constraints.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// DefaultForeignKeyConstraints ties both ends of a transfer to an account.
// RESTRICT keeps an account from being deleted while transfers reference it.
func DefaultForeignKeyConstraints() []ForeignKeyConstraint {
	return []ForeignKeyConstraint{
		{
			Table:           "transfers",
			Column:          "from_account_id",
			ReferenceTable:  "accounts",
			ReferenceColumn: "id",
			OnDelete:        "RESTRICT",
			Description:     "transfers.from_account_id -> accounts.id",
		},
		{
			Table:           "transfers",
			Column:          "to_account_id",
			ReferenceTable:  "accounts",
			ReferenceColumn: "id",
			OnDelete:        "RESTRICT",
			Description:     "transfers.to_account_id -> accounts.id",
		},
	}
}

// GenerateConstraintName returns the explicit name or a derived name.
func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// GenerateSQL returns the ALTER TABLE statement to add the constraint.
func (fk *ForeignKeyConstraint) GenerateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		fk.Table, fk.GenerateConstraintName(), fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	return b.String()
}

// ForeignKeyManager adds and validates foreign key constraints. Constraints
// come from a YAML file when one is given and readable, otherwise from
// DefaultForeignKeyConstraints.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	configPath  string
	logger      Logger
}

func NewForeignKeyManager(logger Logger, configPath string) *ForeignKeyManager {
	fkm := &ForeignKeyManager{configPath: configPath, logger: logger}
	if configPath != "" {
		constraints, err := loadForeignKeyConfig(configPath)
		if err == nil {
			fkm.constraints = constraints
			return fkm
		}
		if logger != nil {
			logger.Debug("Using default foreign key constraints", "config_path", configPath, "error", err.Error())
		}
	}
	fkm.constraints = DefaultForeignKeyConstraints()
	return fkm
}

func loadForeignKeyConfig(path string) ([]ForeignKeyConstraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config ForeignKeyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config.ForeignKeys, nil
}

// ReloadConfig refreshes constraints from the YAML configuration file.
func (fkm *ForeignKeyManager) ReloadConfig() error {
	if fkm.configPath == "" {
		return fmt.Errorf("no foreign key config file configured")
	}
	constraints, err := loadForeignKeyConfig(fkm.configPath)
	if err != nil {
		return err
	}
	fkm.constraints = constraints
	return nil
}

// ExportToConfig writes the current constraints as YAML to outputPath.
func (fkm *ForeignKeyManager) ExportToConfig(outputPath string) error {
	config := ForeignKeyConfig{ForeignKeys: make([]ForeignKeyConstraint, 0, len(fkm.constraints))}
	for _, c := range fkm.constraints {
		if c.Description == "" {
			c.Description = fmt.Sprintf("%s.%s -> %s.%s", c.Table, c.Column, c.ReferenceTable, c.ReferenceColumn)
		}
		config.ForeignKeys = append(config.ForeignKeys, c)
	}

	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddAllForeignKeys adds every constraint. SQLite cannot add constraints to
// an existing table, so it is skipped there. Constraints that already exist
// are logged and skipped.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) error {
	if db.Dialect().Name() == dialect.SQLite {
		if fkm.logger != nil {
			fkm.logger.Debug("Skipping foreign key constraints on sqlite")
		}
		return nil
	}
	for _, constraint := range fkm.constraints {
		if _, err := db.ExecContext(ctx, constraint.GenerateSQL()); err != nil {
			if fkm.logger != nil {
				fkm.logger.Warn("Failed to add foreign key constraint", "constraint", constraint.GenerateConstraintName(), "error", err.Error())
			}
			continue
		}
		if fkm.logger != nil {
			fkm.logger.Debug("Added foreign key constraint", "constraint", constraint.GenerateConstraintName())
		}
	}
	return nil
}

// RemoveForeignKey drops a named foreign key from a table.
func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, tableName, constraintName string) error {
	query := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", tableName, constraintName)
	switch db.Dialect().Name() {
	case dialect.MySQL:
		query = fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", tableName, constraintName)
	case dialect.SQLite:
		return nil
	}
	_, err := db.ExecContext(ctx, query)
	return err
}

// GetConstraintsByTable returns the constraints defined for a table.
func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, constraint := range fkm.constraints {
		if strings.EqualFold(constraint.Table, tableName) {
			result = append(result, constraint)
		}
	}
	return result
}

// ListAllConstraints returns all configured constraints.
func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ValidateConstraints checks the configured constraints for missing names and
// unknown referential actions.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, c := range fkm.constraints {
		switch {
		case c.Table == "":
			errs = append(errs, fmt.Errorf("table name cannot be empty"))
		case c.Column == "":
			errs = append(errs, fmt.Errorf("column name cannot be empty: %s", c.Table))
		case c.ReferenceTable == "":
			errs = append(errs, fmt.Errorf("reference table name cannot be empty: %s.%s", c.Table, c.Column))
		case c.ReferenceColumn == "":
			errs = append(errs, fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", c.Table, c.Column, c.ReferenceTable))
		}
		for _, action := range []string{c.OnDelete, c.OnUpdate} {
			if action != "" && !slices.Contains(referentialActions, strings.ToUpper(action)) {
				errs = append(errs, fmt.Errorf("invalid referential action: %s, constraint: %s", action, c.GenerateConstraintName()))
			}
		}
	}
	return errs
}
