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

// Package exposeddemo is the application facade over the person store.
package exposeddemo

import (
	"context"
	"sync"
	"time"

	"github.com/AleksanderBrzozowski/exposed-demo/database"
	"github.com/AleksanderBrzozowski/exposed-demo/person"
	"github.com/AleksanderBrzozowski/exposed-demo/repository"
	"github.com/AleksanderBrzozowski/exposed-demo/types"
)

type PersonService interface {
	// Register stores a new person and fails with person.ErrDuplicatePerson
	// when the id is taken.
	Register(ctx context.Context, p person.Person) error

	// Rename sets name and timestamp of id, retrying on concurrent writes.
	Rename(ctx context.Context, id, name string, at time.Time) (*person.VersionedPerson, error)

	// Update writes p if the stored version is still expectedVersion.
	Update(ctx context.Context, p person.Person, expectedVersion int) error

	// Get returns the person with id; found is false when it does not exist.
	Get(ctx context.Context, id string) (*person.VersionedPerson, bool, error)

	// All returns every person ordered by id.
	All(ctx context.Context) ([]person.Person, error)

	// Page returns a paginated list of people.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[person.Person], error)
}

type personServiceImpl struct {
	repo      person.Repository
	retryOpts []repository.RetryOption
	once      sync.Once
}

// NewPersonService returns a PersonService on repo.
func NewPersonService(repo person.Repository, retryOpts ...repository.RetryOption) PersonService {
	return &personServiceImpl{repo: repo, retryOpts: retryOpts}
}

// NewDefaultPersonService returns a PersonService backed by the global
// database. The repository is created on first use, after database.InitDB.
func NewDefaultPersonService() PersonService {
	return &personServiceImpl{}
}

func (s *personServiceImpl) personRepo() person.Repository {
	s.once.Do(func() {
		if s.repo == nil {
			s.repo = person.NewRepository(database.GetTxRunner())
		}
	})
	return s.repo
}

func (s *personServiceImpl) Register(ctx context.Context, p person.Person) error {
	return s.personRepo().Insert(ctx, p)
}

func (s *personServiceImpl) Rename(ctx context.Context, id, name string, at time.Time) (*person.VersionedPerson, error) {
	return s.personRepo().Modify(ctx, id, func(p *person.Person) error {
		p.Name = name
		p.Timestamp = at
		return nil
	}, s.retryOpts...)
}

func (s *personServiceImpl) Update(ctx context.Context, p person.Person, expectedVersion int) error {
	_, err := s.personRepo().Update(ctx, p, expectedVersion)
	return err
}

func (s *personServiceImpl) Get(ctx context.Context, id string) (*person.VersionedPerson, bool, error) {
	return s.personRepo().Find(ctx, id)
}

func (s *personServiceImpl) All(ctx context.Context) ([]person.Person, error) {
	return s.personRepo().FindAll(ctx)
}

func (s *personServiceImpl) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[person.Person], error) {
	return s.personRepo().FindPage(ctx, page)
}
