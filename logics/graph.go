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
	"fmt"
	"sort"

	"github.com/gorse-io/movierank/base/log"
	"github.com/gorse-io/movierank/base/progress"
	"github.com/gorse-io/movierank/dataset"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const buildGraphReportInterval = 100

type NodeKind int8

const (
	UserNode NodeKind = iota
	MovieNode
)

func (k NodeKind) String() string {
	switch k {
	case UserNode:
		return "user"
	case MovieNode:
		return "movie"
	}
	return fmt.Sprintf("NodeKind(%d)", int8(k))
}

func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is a vertex of the rating graph. A user and a movie sharing an id are distinct nodes.
type Node struct {
	Kind NodeKind `json:"kind"`
	Id   int      `json:"id"`
}

func NewUserNode(id int) Node {
	return Node{Kind: UserNode, Id: id}
}

func NewMovieNode(id int) Node {
	return Node{Kind: MovieNode, Id: id}
}

func (n Node) String() string {
	return fmt.Sprintf("%s:%d", n.Kind, n.Id)
}

// Edge joins a user to a movie it rated. Weight is the rating.
type Edge struct {
	UserId  int     `json:"user_id"`
	MovieId int     `json:"movie_id"`
	Weight  float64 `json:"weight"`
}

type arc struct {
	to     int
	weight float64
}

// Graph is an undirected weighted bipartite graph of users and movies. Nodes are
// ordered by kind then id, and edges by user id then movie id. A Graph is read-only once
// built and safe for concurrent use.
type Graph struct {
	nodes  []Node
	index  map[Node]int
	adj    [][]arc
	edges  []Edge
	nUsers int
}

// BuildGraph adds one user node per distinct user, one movie node per distinct movie and
// one edge per rating. When a user rates a movie more than once the last rating wins.
func BuildGraph(ctx context.Context, ratings []dataset.Rating) *Graph {
	_, span := progress.Start(ctx, "build_graph", len(ratings))
	defer span.End()
	weights := make(map[[2]int]float64, len(ratings))
	for i, rating := range ratings {
		weights[[2]int{rating.UserId, rating.MovieId}] = rating.Rating
		if (i+1)%buildGraphReportInterval == 0 {
			span.Add(buildGraphReportInterval)
		}
	}
	edges := make([]Edge, 0, len(weights))
	for key, weight := range weights {
		edges = append(edges, Edge{UserId: key[0], MovieId: key[1], Weight: weight})
	}
	users := lo.Uniq(lo.Map(ratings, func(r dataset.Rating, _ int) int { return r.UserId }))
	movies := lo.Uniq(lo.Map(ratings, func(r dataset.Rating, _ int) int { return r.MovieId }))
	g := newGraph(users, movies, edges)
	log.Logger().Debug("build graph",
		zap.Int("n_nodes", g.CountNodes()),
		zap.Int("n_edges", g.CountEdges()))
	return g
}

// newGraph assumes distinct node ids and edges whose endpoints are among the nodes.
func newGraph(users, movies []int, edges []Edge) *Graph {
	sort.Ints(users)
	sort.Ints(movies)
	g := &Graph{
		nodes:  make([]Node, 0, len(users)+len(movies)),
		index:  make(map[Node]int, len(users)+len(movies)),
		nUsers: len(users),
	}
	for _, id := range users {
		g.index[NewUserNode(id)] = len(g.nodes)
		g.nodes = append(g.nodes, NewUserNode(id))
	}
	for _, id := range movies {
		g.index[NewMovieNode(id)] = len(g.nodes)
		g.nodes = append(g.nodes, NewMovieNode(id))
	}
	g.edges = append([]Edge(nil), edges...)
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].UserId != g.edges[j].UserId {
			return g.edges[i].UserId < g.edges[j].UserId
		}
		return g.edges[i].MovieId < g.edges[j].MovieId
	})
	g.adj = make([][]arc, len(g.nodes))
	for _, edge := range g.edges {
		u, m := g.index[NewUserNode(edge.UserId)], g.index[NewMovieNode(edge.MovieId)]
		g.adj[u] = append(g.adj[u], arc{to: m, weight: edge.Weight})
		g.adj[m] = append(g.adj[m], arc{to: u, weight: edge.Weight})
	}
	// arcs of users follow edge order; arcs of movies need sorting by user
	for i := g.nUsers; i < len(g.adj); i++ {
		sort.Slice(g.adj[i], func(a, b int) bool { return g.adj[i][a].to < g.adj[i][b].to })
	}
	return g
}

func (g *Graph) CountNodes() int {
	return len(g.nodes)
}

func (g *Graph) CountEdges() int {
	return len(g.edges)
}

func (g *Graph) CountUsers() int {
	return g.nUsers
}

func (g *Graph) CountMovies() int {
	return len(g.nodes) - g.nUsers
}

// Nodes returns users by ascending id followed by movies by ascending id.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns edges ordered by user id then movie id.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) HasNode(node Node) bool {
	_, ok := g.index[node]
	return ok
}

// Neighbors returns the nodes adjacent to node ordered by id, or nil if node is absent.
func (g *Graph) Neighbors(node Node) []Node {
	i, ok := g.index[node]
	if !ok {
		return nil
	}
	return lo.Map(g.adj[i], func(a arc, _ int) Node { return g.nodes[a.to] })
}

// Weight returns the rating on the edge between a user and a movie.
func (g *Graph) Weight(userId, movieId int) (float64, bool) {
	i, ok := g.index[NewUserNode(userId)]
	if !ok {
		return 0, false
	}
	j, ok := g.index[NewMovieNode(movieId)]
	if !ok {
		return 0, false
	}
	for _, a := range g.adj[i] {
		if a.to == j {
			return a.weight, true
		}
	}
	return 0, false
}

// Subgraph truncates the graph for display. It keeps the subgraph induced by the first
// maxNodes nodes, then, if more than maxEdges edges remain, only the first maxEdges edges
// and their endpoints. Non-positive limits disable truncation.
func (g *Graph) Subgraph(maxNodes, maxEdges int) *Graph {
	nodes := g.nodes
	edges := g.edges
	if maxNodes > 0 && len(nodes) > maxNodes {
		nodes = nodes[:maxNodes]
		kept := make(map[int]struct{}, len(nodes))
		for i := range nodes {
			kept[i] = struct{}{}
		}
		edges = lo.Filter(edges, func(e Edge, _ int) bool {
			_, hasUser := kept[g.index[NewUserNode(e.UserId)]]
			_, hasMovie := kept[g.index[NewMovieNode(e.MovieId)]]
			return hasUser && hasMovie
		})
	}
	if maxEdges > 0 && len(edges) > maxEdges {
		edges = edges[:maxEdges]
		users := lo.Uniq(lo.Map(edges, func(e Edge, _ int) int { return e.UserId }))
		movies := lo.Uniq(lo.Map(edges, func(e Edge, _ int) int { return e.MovieId }))
		return newGraph(users, movies, edges)
	}
	var users, movies []int
	for _, node := range nodes {
		if node.Kind == UserNode {
			users = append(users, node.Id)
		} else {
			movies = append(movies, node.Id)
		}
	}
	return newGraph(users, movies, edges)
}
