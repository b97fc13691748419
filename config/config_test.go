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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTemplate(t *testing.T) {
	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestLoadEmptyPath(t *testing.T) {
	config, err := LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
[dataset]
ratings = "ml-latest-small/ratings.csv"

[similarity]
k = 10
jobs = 4
exclude_rated = true

[graph]
damping = 0.9
filter = '"Comedy" in movie.Genres'

[server]
port = 9000
cache_ttl = "30s"
`), 0644)
	assert.NoError(t, err)
	config, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "ml-latest-small/ratings.csv", config.Dataset.Ratings)
	assert.Equal(t, "data/movies.csv", config.Dataset.Movies)
	assert.Equal(t, 10, config.Similarity.K)
	assert.Equal(t, 4, config.Similarity.Jobs)
	assert.True(t, config.Similarity.ExcludeRated)
	assert.Equal(t, 0.9, config.Graph.Damping)
	assert.Equal(t, 100, config.Graph.MaxIterations)
	assert.Equal(t, `"Comedy" in movie.Genres`, config.Graph.Filter)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.CacheTTL)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("MOVIERANK_GRAPH_DAMPING", "0.5")
	t.Setenv("MOVIERANK_SIMILARITY_K", "7")
	t.Setenv("MOVIERANK_SERVER_API_KEY", "secret")
	t.Setenv("MOVIERANK_SERVER_CACHE_TTL", "2m")
	config, err := LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, 0.5, config.Graph.Damping)
	assert.Equal(t, 7, config.Similarity.K)
	assert.Equal(t, "secret", config.Server.APIKey)
	assert.Equal(t, 2*time.Minute, config.Server.CacheTTL)
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())

	config.Graph.Damping = 1
	assert.Error(t, config.Validate())
	config = GetDefaultConfig()
	config.Graph.Tolerance = 0
	assert.Error(t, config.Validate())
	config = GetDefaultConfig()
	config.Similarity.K = 0
	assert.Error(t, config.Validate())
	config = GetDefaultConfig()
	config.Server.Port = 70000
	assert.Error(t, config.Validate())

	t.Setenv("MOVIERANK_GRAPH_MAX_ITERATIONS", "0")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "invalid config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
