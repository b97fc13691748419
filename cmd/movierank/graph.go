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
	"strconv"

	"github.com/gorse-io/movierank/dataset"
	"github.com/gorse-io/movierank/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var graphCommand = &cobra.Command{
	Use:   "graph",
	Short: "Print the rating graph truncated for display.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ratingsPath := stringFlag(cmd, "ratings", globalConfig.Dataset.Ratings)
		maxNodes := intFlag(cmd, "max-nodes", globalConfig.Server.MaxNodes)
		maxEdges := intFlag(cmd, "max-edges", globalConfig.Server.MaxEdges)
		ratings, err := dataset.ReadRatings(ratingsPath)
		if err != nil {
			return errors.Trace(err)
		}
		var g *logics.Graph
		if err = withProgress(cmd, "graph", func(ctx context.Context) error {
			g = logics.BuildGraph(ctx, ratings)
			return nil
		}); err != nil {
			return errors.Trace(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "users: %d, movies: %d, nodes: %d, edges: %d\n",
			g.CountUsers(), g.CountMovies(), g.CountNodes(), g.CountEdges())
		sub := g.Subgraph(maxNodes, maxEdges)
		table := tablewriter.NewWriter(out)
		table.Header([]string{"user", "movie", "rating"})
		for _, edge := range sub.Edges() {
			if err = table.Append([]string{
				strconv.Itoa(edge.UserId),
				strconv.Itoa(edge.MovieId),
				strconv.FormatFloat(edge.Weight, 'f', -1, 64),
			}); err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(table.Render())
	},
}

func init() {
	rootCommand.AddCommand(graphCommand)
	graphCommand.Flags().String("ratings", "", "path of ratings.csv")
	graphCommand.Flags().Int("max-nodes", 0, "maximum number of displayed nodes")
	graphCommand.Flags().Int("max-edges", 0, "maximum number of displayed edges")
}
