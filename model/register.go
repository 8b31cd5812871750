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

package model

import (
	"sync"

	"github.com/tomoncle/ledger/database"
)

var registerOnce sync.Once

// Register adds the ledger models to the database model registry so that
// migrations create their tables. Accounts come before transfers.
func Register() {
	registerOnce.Do(func() {
		database.RegisteredModel(database.NewModelAdapter(&Account{}, 1))
		database.RegisteredModel(database.NewModelAdapter(&TransferRecord{}, 2))
	})
}
