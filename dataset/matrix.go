// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"github.com/juju/errors"
)

// UserItemMatrix is a dense user x movie rating matrix. Rows follow ascending user ids
// and columns follow ascending movie ids. Missing ratings are 0.
type UserItemMatrix struct {
	users  *Index
	movies *Index
	values []float32
}

// NewUserItemMatrix builds the matrix of a rating list. When a (user, movie) pair is
// rated more than once the last rating wins.
func NewUserItemMatrix(ratings []Rating) *UserItemMatrix {
	userIds := make([]int, len(ratings))
	movieIds := make([]int, len(ratings))
	for i, rating := range ratings {
		userIds[i] = rating.UserId
		movieIds[i] = rating.MovieId
	}
	m := &UserItemMatrix{
		users:  NewIndex(userIds),
		movies: NewIndex(movieIds),
	}
	m.values = make([]float32, m.users.Len()*m.movies.Len())
	for _, rating := range ratings {
		row, _ := m.users.Position(rating.UserId)
		col, _ := m.movies.Position(rating.MovieId)
		m.values[row*m.movies.Len()+col] = float32(rating.Rating)
	}
	return m
}

// NewDenseMatrix wraps row-major values. userIds and movieIds must be strictly ascending
// and len(values) must equal len(userIds) * len(movieIds).
func NewDenseMatrix(userIds, movieIds []int, values []float32) (*UserItemMatrix, error) {
	if len(values) != len(userIds)*len(movieIds) {
		return nil, errors.NotValidf("matrix of %d values with %d users and %d movies",
			len(values), len(userIds), len(movieIds))
	}
	for _, ids := range [][]int{userIds, movieIds} {
		for i := 1; i < len(ids); i++ {
			if ids[i-1] >= ids[i] {
				return nil, errors.NotValidf("ids not strictly ascending at %d", i)
			}
		}
	}
	return &UserItemMatrix{
		users:  NewIndex(userIds),
		movies: NewIndex(movieIds),
		values: append([]float32(nil), values...),
	}, nil
}

// CountUsers returns the number of rows.
func (m *UserItemMatrix) CountUsers() int {
	return m.users.Len()
}

// CountMovies returns the number of columns.
func (m *UserItemMatrix) CountMovies() int {
	return m.movies.Len()
}

// Size returns the number of cells.
func (m *UserItemMatrix) Size() int {
	return len(m.values)
}

// Row returns the ratings of the user at row. The slice shares memory with the matrix
// and must not be modified.
func (m *UserItemMatrix) Row(row int) []float32 {
	cols := m.movies.Len()
	return m.values[row*cols : (row+1)*cols : (row+1)*cols]
}

// Get returns the rating given by userId to movieId, 0 if either id is unknown.
func (m *UserItemMatrix) Get(userId, movieId int) float32 {
	row, ok := m.users.Position(userId)
	if !ok {
		return 0
	}
	col, ok := m.movies.Position(movieId)
	if !ok {
		return 0
	}
	return m.values[row*m.movies.Len()+col]
}

func (m *UserItemMatrix) UserRow(userId int) (int, bool) {
	return m.users.Position(userId)
}

func (m *UserItemMatrix) MovieColumn(movieId int) (int, bool) {
	return m.movies.Position(movieId)
}

func (m *UserItemMatrix) UserId(row int) int {
	return m.users.Id(row)
}

func (m *UserItemMatrix) MovieId(col int) int {
	return m.movies.Id(col)
}

func (m *UserItemMatrix) UserIds() []int {
	return m.users.Ids()
}

func (m *UserItemMatrix) MovieIds() []int {
	return m.movies.Ids()
}
