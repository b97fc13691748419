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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/movierank/base/log"
	"github.com/gorse-io/movierank/server"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		globalConfig.Server.Host = stringFlag(cmd, "host", globalConfig.Server.Host)
		globalConfig.Server.Port = intFlag(cmd, "port", globalConfig.Server.Port)
		if err := globalConfig.Validate(); err != nil {
			return errors.Trace(err)
		}
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		var s *server.RestServer
		if err = withProgress(cmd, "serve", func(ctx context.Context) error {
			var buildErr error
			s, buildErr = server.NewRestServer(ctx, globalConfig, snap.ratings, snap.matrix, snap.catalog)
			return errors.Trace(buildErr)
		}); err != nil {
			return errors.Trace(err)
		}
		// stop server
		done := make(chan struct{})
		go func() {
			defer close(done)
			sigint := make(chan os.Signal, 1)
			signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
			<-sigint
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				log.Logger().Error("failed to shutdown http server", zap.Error(err))
			}
		}()
		if err = s.StartHttpServer(); err != nil {
			return errors.Trace(err)
		}
		<-done
		log.Logger().Info("stop movierank server successfully")
		return nil
	},
}

func init() {
	rootCommand.AddCommand(serveCommand)
	addDatasetFlags(serveCommand, true)
	serveCommand.Flags().String("host", "", "host of the http server")
	serveCommand.Flags().Int("port", 0, "port of the http server")
}
