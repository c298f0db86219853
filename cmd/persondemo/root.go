/*
 * Copyright 2025 AleksanderBrzozowski.
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

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/AleksanderBrzozowski/exposed-demo/utils"
)

// rootOptions holds the global flags of every command.
type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "persondemo",
		Short:         "Versioned person store",
		Long:          "Insert, update and list people stored with optimistic locking.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the JSON results only
			utils.ConfigureLogOutput(cmd.ErrOrStderr())
			if opts.debug {
				utils.ConfigureLogLevel("debug")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "database config file (yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug logging and query log")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newInsertCommand(opts))
	cmd.AddCommand(newUpdateCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))

	return cmd
}

// withDatabase opens the global database for the duration of fn.
// mutators adjust the loaded configuration before connecting.
func withDatabase(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context) error, mutators ...func(*database.Config)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := database.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.debug {
		cfg.ConnectionConfig.EnableQueryLog = true
	}
	for _, m := range mutators {
		m(cfg)
	}

	if _, err := database.InitDB(ctx, cfg); err != nil {
		return err
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to close database: %v\n", err)
		}
	}()
	return fn(ctx)
}

func skipStartupMigrations(cfg *database.Config) {
	cfg.DataMigrateConfig.EnableMigrateOnStartup = false
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
