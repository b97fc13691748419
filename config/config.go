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
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const EnvPrefix = "MOVIERANK"

// Config is the configuration for movierank.
type Config struct {
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Server     ServerConfig     `mapstructure:"server"`
}

// DatasetConfig locates MovieLens style csv files.
type DatasetConfig struct {
	Ratings string `mapstructure:"ratings"`
	Movies  string `mapstructure:"movies"`
	Links   string `mapstructure:"links"`
}

// SimilarityConfig configures user-based collaborative filtering.
type SimilarityConfig struct {
	K            int  `mapstructure:"k" validate:"gte=1"`
	Jobs         int  `mapstructure:"jobs" validate:"gte=1"`
	ExcludeRated bool `mapstructure:"exclude_rated"`
}

// GraphConfig configures personalized PageRank over the rating graph.
type GraphConfig struct {
	Damping       float64 `mapstructure:"damping" validate:"gt=0,lt=1"`
	Tolerance     float64 `mapstructure:"tolerance" validate:"gt=0"`
	MaxIterations int     `mapstructure:"max_iterations" validate:"gte=1"`
	TopN          int     `mapstructure:"top_n" validate:"gte=1"`
	Filter        string  `mapstructure:"filter"`
}

type ServerConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	APIKey   string        `mapstructure:"api_key"`
	DefaultN int           `mapstructure:"default_n" validate:"gte=1"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	MaxNodes int           `mapstructure:"max_nodes" validate:"gte=1"`
	MaxEdges int           `mapstructure:"max_edges" validate:"gte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Ratings: "data/ratings.csv",
			Movies:  "data/movies.csv",
			Links:   "data/links.csv",
		},
		Similarity: SimilarityConfig{
			K:    5,
			Jobs: 1,
		},
		Graph: GraphConfig{
			Damping:       0.85,
			Tolerance:     1e-6,
			MaxIterations: 100,
			TopN:          5,
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8087,
			DefaultN: 10,
			CacheTTL: time.Minute,
			MaxNodes: 300,
			MaxEdges: 200,
		},
	}
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Annotate(err, "invalid config")
	}
	return nil
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	v.SetDefault("dataset.ratings", defaultConfig.Dataset.Ratings)
	v.SetDefault("dataset.movies", defaultConfig.Dataset.Movies)
	v.SetDefault("dataset.links", defaultConfig.Dataset.Links)
	// [similarity]
	v.SetDefault("similarity.k", defaultConfig.Similarity.K)
	v.SetDefault("similarity.jobs", defaultConfig.Similarity.Jobs)
	v.SetDefault("similarity.exclude_rated", defaultConfig.Similarity.ExcludeRated)
	// [graph]
	v.SetDefault("graph.damping", defaultConfig.Graph.Damping)
	v.SetDefault("graph.tolerance", defaultConfig.Graph.Tolerance)
	v.SetDefault("graph.max_iterations", defaultConfig.Graph.MaxIterations)
	v.SetDefault("graph.top_n", defaultConfig.Graph.TopN)
	v.SetDefault("graph.filter", defaultConfig.Graph.Filter)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.api_key", defaultConfig.Server.APIKey)
	v.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	v.SetDefault("server.cache_ttl", defaultConfig.Server.CacheTTL)
	v.SetDefault("server.max_nodes", defaultConfig.Server.MaxNodes)
	v.SetDefault("server.max_edges", defaultConfig.Server.MaxEdges)
}

// LoadConfig reads the configuration file at path (skipped if path is empty), applies
// MOVIERANK_* environment overrides on top of defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if !lo.Contains([]string{".toml", ".yaml", ".yml", ".json"}, filepath.Ext(path)) {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(
		mapstructure.StringToTimeDurationHookFunc(),
	)); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
