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

package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/movierank/base/log"
	"github.com/gorse-io/movierank/config"
	"github.com/gorse-io/movierank/dataset"
	"github.com/gorse-io/movierank/logics"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	methodUserBased  = "user-based"
	methodGraphBased = "graph-based"
	requestIdHeader  = "X-Request-Id"
)

// RecommendedMovie is a recommended movie with its score.
type RecommendedMovie struct {
	MovieId int     `json:"movie_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	ImdbURL string  `json:"imdb_url,omitempty"`
}

type MovieDetail struct {
	dataset.Movie
	ImdbURL string `json:"imdb_url,omitempty"`
}

type GraphView struct {
	Nodes []logics.Node `json:"nodes"`
	Edges []logics.Edge `json:"edges"`
}

type Stats struct {
	Users   int `json:"users"`
	Movies  int `json:"movies"`
	Ratings int `json:"ratings"`
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
}

// RestServer serves recommendations from one immutable snapshot of the dataset.
type RestServer struct {
	Config      *config.Config
	Ratings     []dataset.Rating
	Matrix      *dataset.UserItemMatrix
	Catalog     *dataset.Catalog
	Graph       *logics.Graph
	Recommender *logics.Recommender
	WebService  *restful.WebService

	container  *restful.Container
	cache      *ttlcache.Cache[string, []RecommendedMovie]
	httpServer *http.Server
}

// NewRestServer builds the rating graph and registers routes. ratings are the raw ratings
// used for the graph; matrix and catalog come from dataset.LoadRatings.
func NewRestServer(ctx context.Context, cfg *config.Config, ratings []dataset.Rating,
	matrix *dataset.UserItemMatrix, catalog *dataset.Catalog) (*RestServer, error) {
	recommender, err := logics.NewRecommender(cfg, catalog)
	if err != nil {
		return nil, errors.Trace(err)
	}
	s := &RestServer{
		Config:      cfg,
		Ratings:     ratings,
		Matrix:      matrix,
		Catalog:     catalog,
		Graph:       logics.BuildGraph(ctx, ratings),
		Recommender: recommender,
		WebService:  new(restful.WebService),
		container:   restful.NewContainer(),
	}
	if cfg.Server.CacheTTL > 0 {
		s.cache = ttlcache.New(ttlcache.WithTTL[string, []RecommendedMovie](cfg.Server.CacheTTL))
	}
	s.CreateWebService()
	s.container.Add(s.WebService)
	specConfig := restfulspec.Config{
		WebServices: s.container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	s.container.Add(restfulspec.NewOpenAPIService(specConfig))
	s.container.Handle("/metrics", promhttp.Handler())
	return s, nil
}

// Handler returns the HTTP handler of all routes.
func (s *RestServer) Handler() http.Handler {
	return s.container
}

// StartHttpServer serves until Shutdown is called.
func (s *RestServer) StartHttpServer() error {
	if s.cache != nil {
		go s.cache.Start()
		defer s.cache.Stop()
	}
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.container,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Logger().Info("start http server", zap.String("url", "http://"+addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

func (s *RestServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return errors.Trace(s.httpServer.Shutdown(ctx))
}

// LogFilter tags each request with a request id and logs it after completion.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(requestIdHeader)
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.AddHeader(requestIdHeader, requestId)
	start := time.Now()
	chain.ProcessFilter(req, resp)
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

func (s *RestServer) AuthFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.Config.Server.APIKey == "" || req.HeaderParameter("X-API-Key") == s.Config.Server.APIKey {
		chain.ProcessFilter(req, resp)
		return
	}
	log.ResponseLogger(resp).Error("unauthorized", zap.String("path", req.Request.URL.Path))
	if err := resp.WriteError(http.StatusUnauthorized, errors.Unauthorizedf("api key")); err != nil {
		log.ResponseLogger(resp).Error("failed to write error", zap.Error(err))
	}
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)
	ws.Filter(s.AuthFilter)

	ws.Route(ws.GET("/recommend/{user-id}/user-based").To(s.getUserBased).
		Doc("Recommend movies liked by similar users.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned movies").DataType("integer")).
		Returns(http.StatusOK, "OK", []RecommendedMovie{}).
		Writes([]RecommendedMovie{}))
	ws.Route(ws.GET("/recommend/{user-id}/graph-based").To(s.getGraphBased).
		Doc("Recommend movies by personalized PageRank over the rating graph.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned movies").DataType("integer")).
		Returns(http.StatusOK, "OK", []RecommendedMovie{}).
		Writes([]RecommendedMovie{}))
	ws.Route(ws.GET("/movie/{movie-id}").To(s.getMovie).
		Doc("Get a movie.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("movie-id", "identifier of the movie").DataType("integer")).
		Writes(MovieDetail{}))
	ws.Route(ws.GET("/graph").To(s.getGraph).
		Doc("Get a truncated view of the rating graph.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"graph"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("max-nodes", "maximum number of nodes").DataType("integer")).
		Param(ws.QueryParameter("max-edges", "maximum number of edges").DataType("integer")).
		Writes(GraphView{}))
	ws.Route(ws.GET("/stats").To(s.getStats).
		Doc("Get dataset statistics.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"graph"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(Stats{}))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

func (s *RestServer) parseRecommendParams(request *restful.Request) (userId, n int, err error) {
	if userId, err = strconv.Atoi(request.PathParameter("user-id")); err != nil {
		return 0, 0, errors.NotValidf("user id %q", request.PathParameter("user-id"))
	}
	if n, err = ParseInt(request, "n", s.Config.Server.DefaultN); err != nil {
		return 0, 0, errors.NotValidf("n %q", request.QueryParameter("n"))
	}
	if n <= 0 {
		return 0, 0, errors.NotValidf("n %d", n)
	}
	return userId, n, nil
}

func (s *RestServer) getUserBased(request *restful.Request, response *restful.Response) {
	userId, n, err := s.parseRecommendParams(request)
	if err != nil {
		BadRequest(response, err)
		return
	}
	results, err := s.cached(methodUserBased, userId, n, func() ([]logics.Score, error) {
		start := time.Now()
		defer func() { UserBasedRecommendSeconds.Observe(time.Since(start).Seconds()) }()
		return s.Recommender.UserBasedScores(userId, s.Matrix, n)
	})
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, results)
}

func (s *RestServer) getGraphBased(request *restful.Request, response *restful.Response) {
	userId, n, err := s.parseRecommendParams(request)
	if err != nil {
		BadRequest(response, err)
		return
	}
	results, err := s.cached(methodGraphBased, userId, n, func() ([]logics.Score, error) {
		start := time.Now()
		defer func() { GraphBasedRecommendSeconds.Observe(time.Since(start).Seconds()) }()
		return s.Recommender.RankGraph(s.Graph, userId, n)
	})
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, results)
}

// cached returns recommendations from the response cache or computes and caches them.
func (s *RestServer) cached(method string, userId, n int, compute func() ([]logics.Score, error)) ([]RecommendedMovie, error) {
	key := fmt.Sprintf("%s/%d/%d", method, userId, n)
	if s.cache != nil {
		if item := s.cache.Get(key); item != nil {
			RecommendCacheHits.WithLabelValues(method).Inc()
			return item.Value(), nil
		}
	}
	scores, err := compute()
	if err != nil {
		return nil, errors.Trace(err)
	}
	results := make([]RecommendedMovie, len(scores))
	for i, score := range scores {
		movie, _ := s.Catalog.Get(score.MovieId)
		results[i] = RecommendedMovie{
			MovieId: score.MovieId,
			Title:   movie.Title,
			Score:   score.Score,
			ImdbURL: movie.ImdbURL(),
		}
	}
	if s.cache != nil {
		s.cache.Set(key, results, ttlcache.DefaultTTL)
	}
	return results, nil
}

func (s *RestServer) getMovie(request *restful.Request, response *restful.Response) {
	movieId, err := strconv.Atoi(request.PathParameter("movie-id"))
	if err != nil {
		BadRequest(response, errors.NotValidf("movie id %q", request.PathParameter("movie-id")))
		return
	}
	movie, ok := s.Catalog.Get(movieId)
	if !ok {
		PageNotFound(response, errors.NotFoundf("movie %d", movieId))
		return
	}
	Ok(response, MovieDetail{Movie: movie, ImdbURL: movie.ImdbURL()})
}

func (s *RestServer) getGraph(request *restful.Request, response *restful.Response) {
	maxNodes, err := ParseInt(request, "max-nodes", s.Config.Server.MaxNodes)
	if err != nil {
		BadRequest(response, err)
		return
	}
	maxEdges, err := ParseInt(request, "max-edges", s.Config.Server.MaxEdges)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if maxNodes <= 0 || maxEdges <= 0 {
		BadRequest(response, errors.NotValidf("limits (%d, %d)", maxNodes, maxEdges))
		return
	}
	g := s.Graph.Subgraph(maxNodes, maxEdges)
	Ok(response, GraphView{Nodes: g.Nodes(), Edges: g.Edges()})
}

func (s *RestServer) getStats(_ *restful.Request, response *restful.Response) {
	Ok(response, Stats{
		Users:   s.Matrix.CountUsers(),
		Movies:  s.Catalog.Count(),
		Ratings: len(s.Ratings),
		Nodes:   s.Graph.CountNodes(),
		Edges:   s.Graph.CountEdges(),
	})
}

// WriteError maps recommendation errors to status codes.
func WriteError(response *restful.Response, err error) {
	switch {
	case errors.Is(err, logics.ErrOutOfBounds), errors.Is(err, logics.ErrUnknownUser):
		PageNotFound(response, err)
	case errors.Is(err, dataset.ErrSchema), errors.Is(err, errors.NotValid):
		BadRequest(response, err)
	default:
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
