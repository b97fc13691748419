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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	idx := NewIndex([]int{30, 10, 20, 10})
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []int{10, 20, 30}, idx.Ids())
	pos, ok := idx.Position(20)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
	_, ok = idx.Position(40)
	assert.False(t, ok)
	assert.Equal(t, 30, idx.Id(2))
}

func TestNewUserItemMatrix(t *testing.T) {
	m := NewUserItemMatrix([]Rating{
		{UserId: 7, MovieId: 3, Rating: 1},
		{UserId: 2, MovieId: 9, Rating: 2},
		{UserId: 7, MovieId: 3, Rating: 5},
	})
	assert.Equal(t, 2, m.CountUsers())
	assert.Equal(t, 2, m.CountMovies())
	assert.Equal(t, 4, m.Size())
	assert.Equal(t, []float32{0, 2}, m.Row(0))
	assert.Equal(t, []float32{5, 0}, m.Row(1))
	assert.Equal(t, float32(5), m.Get(7, 3))
	assert.Zero(t, m.Get(7, 9))
	assert.Zero(t, m.Get(8, 3))
	row, ok := m.UserRow(7)
	assert.True(t, ok)
	assert.Equal(t, 1, row)
	col, ok := m.MovieColumn(9)
	assert.True(t, ok)
	assert.Equal(t, 1, col)
	assert.Equal(t, 7, m.UserId(1))
	assert.Equal(t, 3, m.MovieId(0))
}

func TestNewDenseMatrix(t *testing.T) {
	m, err := NewDenseMatrix([]int{1, 2}, []int{1, 2, 3}, []float32{1, 2, 3, 4, 5, 6})
	assert.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, m.Row(1))
	_, err = NewDenseMatrix([]int{1, 2}, []int{1, 2, 3}, []float32{1, 2, 3})
	assert.Error(t, err)
	_, err = NewDenseMatrix([]int{2, 1}, []int{1}, []float32{1, 2})
	assert.Error(t, err)
	m, err = NewDenseMatrix(nil, nil, nil)
	assert.NoError(t, err)
	assert.Zero(t, m.Size())
}
