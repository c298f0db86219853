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
	"sort"
	"sync"
)

var defaultRegistry = NewMigrationRegistry()

// MigrationRegistry stores migrations and exposes them in version order.
// Registering a version twice replaces the earlier item.
type MigrationRegistry interface {
	Register(item MigrationItem)
	Migrations() []MigrationItem
}

type migrationRegistry struct {
	items map[string]MigrationItem
	mutex sync.RWMutex
}

func NewMigrationRegistry() MigrationRegistry {
	return &migrationRegistry{
		items: make(map[string]MigrationItem),
	}
}

func (r *migrationRegistry) Register(item MigrationItem) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.items[item.Version] = item
}

func (r *migrationRegistry) Migrations() []MigrationItem {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]MigrationItem, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result
}

// RegisterMigration adds a migration to the default registry. Packages that
// own tables call it from init.
func RegisterMigration(item MigrationItem) {
	defaultRegistry.Register(item)
}

// RegisteredMigrations returns the migrations of the default registry in
// ascending version order.
func RegisteredMigrations() []MigrationItem {
	return defaultRegistry.Migrations()
}
