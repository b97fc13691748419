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

	"github.com/gorse-io/movierank/common/heap"
	"github.com/gorse-io/movierank/config"
	"github.com/gorse-io/movierank/dataset"
	"github.com/juju/errors"
)

// Recommender combines user-based collaborative filtering and graph ranking. It caches
// neither matrices nor graphs.
type Recommender struct {
	userBased *UserBased
	ranker    *GraphRanker
}

func NewRecommender(cfg *config.Config, catalog *dataset.Catalog) (*Recommender, error) {
	ranker, err := NewGraphRanker(cfg.Graph, catalog)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Recommender{
		userBased: NewUserBased(cfg.Similarity),
		ranker:    ranker,
	}, nil
}

// UserBased returns movies with positive user-based scores, best first.
func (r *Recommender) UserBased(userId int, m *dataset.UserItemMatrix) ([]int, error) {
	scores, err := r.UserBasedScores(userId, m, 0)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids := make([]int, len(scores))
	for i, score := range scores {
		ids[i] = score.MovieId
	}
	return ids, nil
}

// UserBasedScores returns movies with positive user-based scores ordered by descending
// score, ties by ascending movie id. Only the first n are kept if n > 0.
func (r *Recommender) UserBasedScores(userId int, m *dataset.UserItemMatrix, n int) ([]Score, error) {
	scores, err := r.userBased.RecommendForUser(userId, m)
	if err != nil {
		return nil, errors.Trace(err)
	}
	filter := heap.NewTopKFilter[int, float32](n)
	for col, score := range scores {
		if score > 0 {
			filter.Push(m.MovieId(col), score)
		}
	}
	elems := filter.PopAll()
	result := make([]Score, len(elems))
	for i, elem := range elems {
		result[i] = Score{MovieId: elem.Value, Score: float64(elem.Weight)}
	}
	return result, nil
}

// GraphBased builds a graph from ratings and returns up to topN unrated movies.
func (r *Recommender) GraphBased(ctx context.Context, userId int, ratings []dataset.Rating, topN int) ([]int, error) {
	g := BuildGraph(ctx, ratings)
	ids, err := r.ranker.Recommend(g, userId, topN)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ids, nil
}

// RankGraph ranks unrated movies on a graph built by the caller.
func (r *Recommender) RankGraph(g *Graph, userId, topN int) ([]Score, error) {
	scores, err := r.ranker.Rank(g, userId, topN)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scores, nil
}
