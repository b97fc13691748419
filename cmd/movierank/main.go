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

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorse-io/movierank/base/log"
	"github.com/gorse-io/movierank/base/progress"
	"github.com/gorse-io/movierank/cmd/version"
	"github.com/gorse-io/movierank/config"
	"github.com/gorse-io/movierank/dataset"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var globalConfig *config.Config

var rootCommand = &cobra.Command{
	Use:           "movierank",
	Short:         "Movie recommendations by collaborative filtering and personalized PageRank.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		// load config
		configPath, _ := cmd.Flags().GetString("config")
		var err error
		if globalConfig, err = config.LoadConfig(configPath); err != nil {
			return errors.Annotate(err, "failed to load config")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.AddCommand(versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

// addDatasetFlags registers csv path flags. Unset flags fall back to the [dataset] config.
func addDatasetFlags(cmd *cobra.Command, links bool) {
	cmd.Flags().String("ratings", "", "path of ratings.csv")
	cmd.Flags().String("movies", "", "path of movies.csv")
	if links {
		cmd.Flags().String("links", "", "path of links.csv (optional)")
	}
}

func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		value, _ := cmd.Flags().GetString(name)
		return value
	}
	return fallback
}

func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) {
		value, _ := cmd.Flags().GetInt(name)
		return value
	}
	return fallback
}

type snapshot struct {
	ratings []dataset.Rating
	matrix  *dataset.UserItemMatrix
	catalog *dataset.Catalog
}

// loadSnapshot reads ratings, movies and optional links. A missing links file is only
// reported when the path was given on the command line.
func loadSnapshot(cmd *cobra.Command) (*snapshot, error) {
	ratingsPath := stringFlag(cmd, "ratings", globalConfig.Dataset.Ratings)
	moviesPath := stringFlag(cmd, "movies", globalConfig.Dataset.Movies)
	ratings, err := dataset.ReadRatings(ratingsPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	movies, err := dataset.ReadMovies(moviesPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	matrix, catalog, err := dataset.LoadRatings(ratings, movies)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cmd.Flags().Lookup("links") != nil {
		linksPath := stringFlag(cmd, "links", globalConfig.Dataset.Links)
		if linksPath != "" {
			if err = dataset.ReadLinks(catalog, linksPath); err != nil {
				if cmd.Flags().Changed("links") {
					return nil, errors.Trace(err)
				}
				log.Logger().Warn("skip links", zap.String("path", linksPath), zap.Error(err))
			}
		}
	}
	return &snapshot{ratings: ratings, matrix: matrix, catalog: catalog}, nil
}

// withProgress runs fn with a tracer whose span updates drive progress bars on stderr.
func withProgress(cmd *cobra.Command, name string, fn func(ctx context.Context) error) error {
	tracer := progress.NewTracer(name)
	var (
		mu   sync.Mutex
		bars = make(map[string]*progressbar.ProgressBar)
	)
	tracer.Subscribe(func(p progress.Progress) {
		if p.Total <= 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		bar, ok := bars[p.Name]
		if !ok {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription(p.Name),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish())
			bars[p.Name] = bar
		}
		_ = bar.Set(p.Count)
		if p.Status == progress.StatusComplete || p.Status == progress.StatusFailed {
			_ = bar.Finish()
		}
	})
	defer tracer.Close()
	ctx, span := tracer.Start(cmd.Context(), name, 0)
	if err := fn(ctx); err != nil {
		span.Fail(err)
		return errors.Trace(err)
	}
	span.End()
	return nil
}
