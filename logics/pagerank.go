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
	"math"
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/movierank/base/log"
	"github.com/gorse-io/movierank/common/heap"
	"github.com/gorse-io/movierank/config"
	"github.com/gorse-io/movierank/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// GraphRanker scores movies for a user with personalized PageRank over the rating graph.
type GraphRanker struct {
	damping       float64
	tolerance     float64
	maxIterations int
	filterFunc    *vm.Program
	catalog       *dataset.Catalog
}

// NewGraphRanker creates a ranker. A non-empty cfg.Filter is a boolean expression over
// `movie` and requires a catalog, e.g. `"Comedy" in movie.Genres`.
func NewGraphRanker(cfg config.GraphConfig, catalog *dataset.Catalog) (*GraphRanker, error) {
	r := &GraphRanker{
		damping:       cfg.Damping,
		tolerance:     cfg.Tolerance,
		maxIterations: cfg.MaxIterations,
		catalog:       catalog,
	}
	if cfg.Filter != "" {
		if catalog == nil {
			return nil, errors.New("filter requires a movie catalog")
		}
		filterFunc, err := expr.Compile(cfg.Filter, expr.Env(map[string]any{
			"movie": dataset.Movie{},
		}))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if filterFunc.Node().Type().Kind() != reflect.Bool {
			return nil, errors.New("filter function must return bool")
		}
		r.filterFunc = filterFunc
	}
	return r, nil
}

// Recommend returns up to topN movies the user has not rated, best first.
func (r *GraphRanker) Recommend(g *Graph, userId, topN int) ([]int, error) {
	scores, err := r.Rank(g, userId, topN)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids := make([]int, len(scores))
	for i, score := range scores {
		ids[i] = score.MovieId
	}
	return ids, nil
}

// Rank is Recommend with scores. Movies are ordered by descending score, ties by
// ascending movie id.
func (r *GraphRanker) Rank(g *Graph, userId, topN int) ([]Score, error) {
	if topN <= 0 {
		return nil, errors.NotValidf("topN %d", topN)
	}
	user := NewUserNode(userId)
	if !g.HasNode(user) {
		return nil, errors.Annotatef(ErrUnknownUser, "user %d", userId)
	}
	ranks, err := r.PageRank(g, user)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rated := mapset.NewThreadUnsafeSet[int]()
	for _, node := range g.Neighbors(user) {
		rated.Add(node.Id)
	}
	filter := heap.NewTopKFilter[int, float64](topN)
	for i, node := range g.nodes {
		if node.Kind != MovieNode || rated.Contains(node.Id) {
			continue
		}
		if !r.accept(node.Id) {
			continue
		}
		filter.Push(node.Id, ranks[i])
	}
	elems := filter.PopAll()
	scores := make([]Score, len(elems))
	for i, elem := range elems {
		scores[i] = Score{MovieId: elem.Value, Score: elem.Weight}
	}
	return scores, nil
}

func (r *GraphRanker) accept(movieId int) bool {
	if r.filterFunc == nil {
		return true
	}
	movie, ok := r.catalog.Get(movieId)
	if !ok {
		movie = dataset.Movie{MovieId: movieId}
	}
	result, err := expr.Run(r.filterFunc, map[string]any{
		"movie": movie,
	})
	if err != nil {
		log.Logger().Error("failed to evaluate filter function", zap.Int("movie_id", movieId), zap.Error(err))
		return false
	}
	return result.(bool)
}

// PageRank runs power iteration with all personalization on source. Scores are indexed
// like g.Nodes() and sum to 1.
func (r *GraphRanker) PageRank(g *Graph, source Node) ([]float64, error) {
	n := len(g.nodes)
	s, ok := g.index[source]
	if !ok {
		return nil, errors.Annotatef(ErrUnknownUser, "node %s", source)
	}
	outWeights := make([]float64, n)
	var dangling []int
	for i, arcs := range g.adj {
		for _, a := range arcs {
			outWeights[i] += a.weight
		}
		if outWeights[i] == 0 {
			dangling = append(dangling, i)
		}
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	last := make([]float64, n)
	for iteration := 1; iteration <= r.maxIterations; iteration++ {
		x, last = last, x
		clear(x)
		danglingSum := 0.0
		for _, i := range dangling {
			danglingSum += last[i]
		}
		danglingSum *= r.damping
		for i, arcs := range g.adj {
			if outWeights[i] == 0 {
				continue
			}
			for _, a := range arcs {
				x[a.to] += r.damping * last[i] * a.weight / outWeights[i]
			}
		}
		// dangling mass and teleport both follow the personalization vector
		x[s] += danglingSum + (1 - r.damping)
		diff := 0.0
		for i := range x {
			diff += math.Abs(x[i] - last[i])
		}
		if diff < float64(n)*r.tolerance {
			pageRankIterations.Observe(float64(iteration))
			log.Logger().Debug("pagerank converged",
				zap.Stringer("source", source),
				zap.Int("iterations", iteration))
			return x, nil
		}
	}
	return nil, errors.Annotatef(ErrConvergence, "%d iterations", r.maxIterations)
}
