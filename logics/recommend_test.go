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
	"testing"

	"github.com/gorse-io/movierank/config"
	"github.com/gorse-io/movierank/dataset"
	"github.com/stretchr/testify/suite"
)

type RecommenderTestSuite struct {
	suite.Suite
	ratings     []dataset.Rating
	matrix      *dataset.UserItemMatrix
	recommender *Recommender
}

func (suite *RecommenderTestSuite) SetupTest() {
	suite.ratings = scenarioRatings()
	matrix, catalog, err := dataset.LoadRatings(suite.ratings, scenarioMovies())
	suite.NoError(err)
	suite.matrix = matrix
	suite.recommender, err = NewRecommender(config.GetDefaultConfig(), catalog)
	suite.NoError(err)
}

func (suite *RecommenderTestSuite) TestUserBased() {
	recommendations, err := suite.recommender.UserBased(2, suite.matrix)
	suite.NoError(err)
	suite.Equal([]int{1, 3, 5}, recommendations)

	scores, err := suite.recommender.UserBasedScores(2, suite.matrix, 2)
	suite.NoError(err)
	suite.Equal([]Score{{MovieId: 1, Score: 2}, {MovieId: 3, Score: 1.5}}, scores)

	_, err = suite.recommender.UserBased(7, suite.matrix)
	suite.ErrorIs(err, ErrOutOfBounds)
}

func (suite *RecommenderTestSuite) TestGraphBased() {
	recommendations, err := suite.recommender.GraphBased(context.Background(), 2, suite.ratings, 5)
	suite.NoError(err)
	suite.Equal([]int{2, 3, 5}, recommendations)
	suite.NotContains(recommendations, 1)
	suite.NotContains(recommendations, 4)

	_, err = suite.recommender.GraphBased(context.Background(), 9, suite.ratings, 5)
	suite.ErrorIs(err, ErrUnknownUser)
}

func (suite *RecommenderTestSuite) TestRankGraph() {
	g := BuildGraph(context.Background(), suite.ratings)
	scores, err := suite.recommender.RankGraph(g, 1, 1)
	suite.NoError(err)
	if suite.Len(scores, 1) {
		suite.Equal(4, scores[0].MovieId)
		suite.Greater(scores[0].Score, 0.0)
	}
}

func (suite *RecommenderTestSuite) TestInvalidFilter() {
	cfg := config.GetDefaultConfig()
	cfg.Graph.Filter = "movie.Title"
	_, err := NewRecommender(cfg, dataset.NewCatalog(scenarioMovies()))
	suite.Error(err)
}

func TestRecommender(t *testing.T) {
	suite.Run(t, new(RecommenderTestSuite))
}
