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

package logics

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/movierank/base/log"
	"github.com/gorse-io/movierank/common/floats"
	"github.com/gorse-io/movierank/common/heap"
	"github.com/gorse-io/movierank/common/parallel"
	"github.com/gorse-io/movierank/config"
	"github.com/gorse-io/movierank/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// UserBased recommends movies by averaging the ratings of the k users most similar to
// the target user.
type UserBased struct {
	k            int
	jobs         int
	excludeRated bool
}

func NewUserBased(cfg config.SimilarityConfig) *UserBased {
	return &UserBased{
		k:            max(cfg.K, 1),
		jobs:         max(cfg.Jobs, 1),
		excludeRated: cfg.ExcludeRated,
	}
}

// RecommendForUser returns one score per movie column of m.
func (u *UserBased) RecommendForUser(userId int, m *dataset.UserItemMatrix) ([]float32, error) {
	return u.recommend(context.Background(), userId, m)
}

func (u *UserBased) recommend(ctx context.Context, userId int, m *dataset.UserItemMatrix) ([]float32, error) {
	if m == nil || m.Size() == 0 {
		return nil, errors.Trace(ErrEmptyMatrix)
	}
	target, ok := m.UserRow(userId)
	if !ok {
		return nil, errors.Annotatef(ErrOutOfBounds, "user %d", userId)
	}
	neighbors, err := u.neighbors(ctx, target, m)
	if err != nil {
		return nil, errors.Trace(err)
	}

	scores := make([]float32, m.CountMovies())
	if len(neighbors) > 0 {
		weight := 1 / float32(len(neighbors))
		for _, row := range neighbors {
			floats.MulConstAdd(m.Row(row), weight, scores)
		}
	}
	// the column sharing the target's row position is cleared
	if target < len(scores) {
		scores[target] = 0
	}
	if u.excludeRated {
		rated := bitset.New(uint(len(scores)))
		for col, rating := range m.Row(target) {
			if rating != 0 {
				rated.Set(uint(col))
			}
		}
		for col, ok := rated.NextSet(0); ok; col, ok = rated.NextSet(col + 1) {
			scores[col] = 0
		}
	}
	log.Logger().Debug("user-based recommendation",
		zap.Int("user_id", userId),
		zap.Ints("neighbors", neighbors))
	return scores, nil
}

// neighbors returns the rows ranked 1..k by cosine similarity to the target row. Rank 0
// is skipped. Ties are broken by ascending row index.
func (u *UserBased) neighbors(ctx context.Context, target int, m *dataset.UserItemMatrix) ([]int, error) {
	n := m.CountUsers()
	targetRow := m.Row(target)
	targetNorm := floats.Norm(targetRow)
	similarities := make([]float32, n)
	err := parallel.For(ctx, n, u.jobs, func(i int) {
		row := m.Row(i)
		similarities[i] = floats.CosineWithNorms(targetRow, row, targetNorm, floats.Norm(row))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	filter := heap.NewTopKFilter[int, float32](u.k + 1)
	for i, similarity := range similarities {
		filter.Push(i, similarity)
	}
	ranked := filter.PopAllValues()
	if len(ranked) == 0 {
		return nil, nil
	}
	neighbors := make([]int, 0, len(ranked)-1)
	for _, row := range ranked[1:] {
		if row >= 0 && row < n {
			neighbors = append(neighbors, row)
		}
	}
	return neighbors, nil
}
