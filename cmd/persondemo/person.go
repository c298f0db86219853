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
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	exposeddemo "github.com/AleksanderBrzozowski/exposed-demo"
	"github.com/AleksanderBrzozowski/exposed-demo/person"
	"github.com/AleksanderBrzozowski/exposed-demo/types"
)

type insertOptions struct {
	id        string
	name      string
	timestamp string
	metadata  string
}

func newInsertCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &insertOptions{}

	cmd := &cobra.Command{
		Use:          "insert",
		Short:        "Insert a new person at version 0",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.id, "id", "", "person id (random uuid when empty)")
	cmd.Flags().StringVar(&opts.name, "name", "", "person name")
	cmd.Flags().StringVar(&opts.timestamp, "timestamp", "", "RFC 3339 timestamp (now when empty)")
	cmd.Flags().StringVar(&opts.metadata, "metadata", "", "JSON metadata document")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInsert(rootOpts *rootOptions, opts *insertOptions, cmd *cobra.Command) error {
	at, err := parseTimestamp(opts.timestamp)
	if err != nil {
		return err
	}
	if opts.metadata != "" && !json.Valid([]byte(opts.metadata)) {
		return fmt.Errorf("metadata is not a valid JSON document")
	}
	id := opts.id
	if id == "" {
		id = uuid.NewString()
	}
	p := person.Person{ID: id, Name: opts.name, Timestamp: at, Metadata: types.NewJsonb(opts.metadata)}

	return withDatabase(cmd, rootOpts, func(ctx context.Context) error {
		svc := exposeddemo.NewDefaultPersonService()
		if err := svc.Register(ctx, p); err != nil {
			return fmt.Errorf("person %q: %w", id, err)
		}
		return printPerson(ctx, cmd, svc, id)
	})
}

type updateOptions struct {
	id        string
	name      string
	timestamp string
	version   int
}

func newUpdateCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update name and timestamp of a person",
		Long: "Without --version the update is retried against the latest version. " +
			"With --version it is applied only if the stored version still matches.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.id, "id", "", "person id")
	cmd.Flags().StringVar(&opts.name, "name", "", "new name")
	cmd.Flags().StringVar(&opts.timestamp, "timestamp", "", "RFC 3339 timestamp (now when empty)")
	cmd.Flags().IntVar(&opts.version, "version", 0, "expected current version")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runUpdate(rootOpts *rootOptions, opts *updateOptions, cmd *cobra.Command) error {
	at, err := parseTimestamp(opts.timestamp)
	if err != nil {
		return err
	}
	conditional := cmd.Flags().Changed("version")

	return withDatabase(cmd, rootOpts, func(ctx context.Context) error {
		svc := exposeddemo.NewDefaultPersonService()
		if !conditional {
			updated, err := svc.Rename(ctx, opts.id, opts.name, at)
			if err != nil {
				return fmt.Errorf("person %q: %w", opts.id, err)
			}
			return printJSON(cmd, updated)
		}

		p := person.Person{ID: opts.id, Name: opts.name, Timestamp: at}
		if err := svc.Update(ctx, p, opts.version); err != nil {
			return fmt.Errorf("person %q at version %d: %w", opts.id, opts.version, err)
		}
		return printPerson(ctx, cmd, svc, opts.id)
	})
}

func newGetCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "get <id>",
		Short:        "Show a person with its version",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, rootOpts, func(ctx context.Context) error {
				return printPerson(ctx, cmd, exposeddemo.NewDefaultPersonService(), args[0])
			})
		},
	}
}

type listOptions struct {
	page int
	size int
}

func newListCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List people ordered by id",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.page, "page", 0, "page number, all people when 0")
	cmd.Flags().IntVar(&opts.size, "size", types.DefaultPageSize, "page size")

	return cmd
}

func runList(rootOpts *rootOptions, opts *listOptions, cmd *cobra.Command) error {
	return withDatabase(cmd, rootOpts, func(ctx context.Context) error {
		svc := exposeddemo.NewDefaultPersonService()
		if opts.page > 0 {
			page, err := svc.Page(ctx, types.NewDefaultPageRequest(opts.page, opts.size))
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		}
		people, err := svc.All(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, people)
	})
}

func printPerson(ctx context.Context, cmd *cobra.Command, svc exposeddemo.PersonService, id string) error {
	p, found, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("person %q: %w", id, person.ErrPersonNotFound)
	}
	return printJSON(cmd, p)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
