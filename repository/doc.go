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

// Package repository implements optimistic-locking persistence on Bun.
//
// A VersionedRepository stores rows that carry an integer version. Insert
// writes version 0 and reports unique key violations as ErrDuplicateKey.
// Update is a single conditional statement
//
//	UPDATE <table> SET ..., version = expected+1 WHERE id = ? AND version = expected
//
// and a statement that changes no row is reported as ErrOptimisticConflict.
// Every call runs through a database.TxRunner and joins the transaction
// carried by the context, if any.
package repository
