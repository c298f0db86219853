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
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var errNotInitialized = errors.New("database not initialized")

// global holds the process-wide database opened by InitDB.
var global struct {
	mu      sync.RWMutex
	factory *BaseDatabaseFactory
	config  *Config
}

func currentFactory() *BaseDatabaseFactory {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.factory
}

// GetDB returns the global Bun database, or nil before InitDB.
func GetDB() *bun.DB {
	if f := currentFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetTxRunner returns the transaction runner of the global database, or nil
// before InitDB.
func GetTxRunner() *TxRunner {
	if f := currentFactory(); f != nil {
		return f.GetTxRunner()
	}
	return nil
}

func GetDatabaseManager() AbstractDatabaseManager {
	if f := currentFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

func GetDatabaseFactory() *BaseDatabaseFactory {
	return currentFactory()
}

// InitDB opens the global database described by cfg. Migrations and init
// SQL files run when cfg enables them.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	db, err := InitDatabaseWithOptions(ctx, cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	if err != nil {
		return nil, err
	}
	if cfg.DataInitConfig.AutoInitOnStartup {
		if err := InitData(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize data: %w", err)
		}
	}
	return db, nil
}

// InitDatabaseWithOptions opens the global database and runs migrations when
// runMigrations is set. A previously opened global database is closed first.
func InitDatabaseWithOptions(ctx context.Context, cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := CloseDB(); err != nil {
		GetLogger().Warn("Failed to close previous database", "error", err)
	}

	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	global.mu.Lock()
	global.factory, global.config = factory, cfg
	global.mu.Unlock()
	return manager.GetDB(), nil
}

// CloseDB closes the global database. It is a no-op before InitDB.
func CloseDB() error {
	global.mu.Lock()
	f := global.factory
	global.factory, global.config = nil, nil
	global.mu.Unlock()

	if f == nil {
		return nil
	}
	return f.Close()
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := currentFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: errNotInitialized.Error()}
}

func GetDatabaseStats() *DBStats {
	if f := currentFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}

// RunMigrations applies the registered migrations to the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return errNotInitialized
	}
	return manager.RunMigrations(ctx)
}

// InitData runs the init SQL files configured for the global database,
// falling back to DefaultConfig for unset fields.
func InitData(ctx context.Context) error {
	dataCfg := DefaultConfig().DataInitConfig

	global.mu.RLock()
	if cfg := global.config; cfg != nil {
		if cfg.DataInitConfig.Environment != "" {
			dataCfg.Environment = cfg.DataInitConfig.Environment
		}
		if cfg.DataInitConfig.Filepath != "" {
			dataCfg.Filepath = cfg.DataInitConfig.Filepath
		}
	}
	global.mu.RUnlock()

	return InitDataWithSQL(ctx, dataCfg)
}

// InitDataWithSQL runs the init SQL files described by dataCfg on the
// global database.
func InitDataWithSQL(ctx context.Context, dataCfg DataInitConfig) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return errNotInitialized
	}
	return manager.InitData(ctx, dataCfg)
}
