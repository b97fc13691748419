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
	"io"
	"strconv"
	"strings"

	"github.com/gorse-io/movierank/base"
	"github.com/gorse-io/movierank/dataset"
	"github.com/gorse-io/movierank/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const (
	methodUser  = "user"
	methodGraph = "graph"
	methodBoth  = "both"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend movies for a user.",
	RunE: func(cmd *cobra.Command, args []string) error {
		userId, _ := cmd.Flags().GetInt("user")
		method, _ := cmd.Flags().GetString("method")
		asCSV, _ := cmd.Flags().GetBool("csv")
		if !lo.Contains([]string{methodUser, methodGraph, methodBoth}, method) {
			return errors.NotValidf("method %q", method)
		}
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		recommender, err := logics.NewRecommender(globalConfig, snap.catalog)
		if err != nil {
			return errors.Trace(err)
		}
		out := cmd.OutOrStdout()
		if method == methodUser || method == methodBoth {
			n := intFlag(cmd, "n", globalConfig.Server.DefaultN)
			scores, err := recommender.UserBasedScores(userId, snap.matrix, n)
			if err != nil {
				return errors.Trace(err)
			}
			if err = printScores(out, "user-based", scores, snap.catalog, asCSV); err != nil {
				return errors.Trace(err)
			}
		}
		if method == methodGraph || method == methodBoth {
			n := intFlag(cmd, "n", globalConfig.Graph.TopN)
			var scores []logics.Score
			err = withProgress(cmd, "recommend", func(ctx context.Context) error {
				var rankErr error
				g := logics.BuildGraph(ctx, snap.ratings)
				scores, rankErr = recommender.RankGraph(g, userId, n)
				return errors.Trace(rankErr)
			})
			if err != nil {
				return errors.Trace(err)
			}
			if err = printScores(out, "graph-based", scores, snap.catalog, asCSV); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	},
}

func init() {
	rootCommand.AddCommand(recommendCommand)
	addDatasetFlags(recommendCommand, true)
	recommendCommand.Flags().Int("user", 0, "user id")
	recommendCommand.Flags().Int("n", 0, "number of recommended movies")
	recommendCommand.Flags().String("method", methodBoth, "recommendation method (user, graph or both)")
	recommendCommand.Flags().Bool("csv", false, "print csv instead of a table")
	_ = recommendCommand.MarkFlagRequired("user")
}

func printScores(w io.Writer, method string, scores []logics.Score, catalog *dataset.Catalog, asCSV bool) error {
	header := []string{"method", "rank", "movie_id", "title", "score", "imdb"}
	rows := make([][]string, len(scores))
	for i, score := range scores {
		movie, _ := catalog.Get(score.MovieId)
		rows[i] = []string{
			method,
			strconv.Itoa(i + 1),
			strconv.Itoa(score.MovieId),
			movie.Title,
			strconv.FormatFloat(score.Score, 'g', 6, 64),
			movie.ImdbURL(),
		}
	}
	if asCSV {
		for _, row := range append([][]string{header}, rows...) {
			fields := lo.Map(row, func(field string, _ int) string { return base.Escape(field) })
			if _, err := fmt.Fprintln(w, strings.Join(fields, ",")); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header(header[1:])
	for _, row := range rows {
		if err := table.Append(row[1:]); err != nil {
			return errors.Trace(err)
		}
	}
	if _, err := fmt.Fprintf(w, "%s recommendations\n", method); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}
