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

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/cenkalti/backoff/v4"
)

const defaultMaxRetries = 3

// RetryOption configures UpdateWithRetry.
type RetryOption func(*retryConfig)

type retryConfig struct {
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     database.Logger
}

// WithMaxRetries sets how many times a conflicting update is retried.
func WithMaxRetries(n uint64) RetryOption {
	return func(c *retryConfig) { c.maxRetries = n }
}

// WithBackOff sets the delay policy between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) RetryOption {
	return func(c *retryConfig) { c.newBackOff = newBackOff }
}

func WithRetryLogger(l database.Logger) RetryOption {
	return func(c *retryConfig) { c.logger = l }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

// UpdateWithRetry reads the row with id, applies mutate and writes it back
// expecting the version it read. Only ErrOptimisticConflict is retried; a
// missing id fails with ErrNotFound and any other error is returned as is.
// The returned value holds the written row and its new version.
func UpdateWithRetry[R VersionedRow](ctx context.Context, store VersionedStore[R], id string, mutate func(row *R) error, opts ...RetryOption) (*Versioned[R], error) {
	cfg := retryConfig{
		maxRetries: defaultMaxRetries,
		newBackOff: defaultBackOff,
		logger:     database.GetLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var result *Versioned[R]
	operation := func() error {
		found, ok, err := store.Find(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return backoff.Permanent(ErrNotFound)
		}

		row := found.Entity
		if err := mutate(&row); err != nil {
			return backoff.Permanent(err)
		}
		if _, err := store.Update(ctx, &row, found.Version); err != nil {
			if errors.Is(err, ErrOptimisticConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = &Versioned[R]{Entity: row, Version: found.Version + 1}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(cfg.newBackOff(), cfg.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		cfg.logger.Debug("Retrying update after conflict", "id", id, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return result, nil
}
