// Copyright 2026 The Relaunch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gdamore/relaunch"
	"github.com/gdamore/relaunch/rest"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor and the status page",
	Long: `Run downloads the artifact if needed, then keeps it running until
interrupted.  On SIGINT or SIGTERM the child is asked to terminate, and is
killed if it does not within stop.timeout.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("port", "p", relaunch.DefaultPort, "HTTP port for the status page")
	f.String("artifact", "", "path of the executable to supervise")
	f.String("artifact-url", "", "URL the executable is downloaded from")
	f.String("log-file", "", "append-only log file")
	f.String("log-level", "", "log level: debug, info, warn, error")

	// Only explicitly given flags override the config.
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		for key, name := range map[string]string{
			"port":          "port",
			"artifact.path": "artifact",
			"artifact.url":  "artifact-url",
			"log.file":      "log-file",
			"log.level":     "log-level",
		} {
			if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
				viper.BindPFlag(key, fl)
			}
		}
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	c, e := relaunch.LoadConfig(viper.GetViper())
	if e != nil {
		return e
	}
	level, _ := relaunch.ParseLevel(c.Log.Level)
	mem := relaunch.NewLog(c.Log.Records)
	logger := relaunch.NewLogger(level, os.Stdout, mem)
	if e := logger.OpenFile(c.Log.File); e != nil {
		return e
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := relaunch.NewSupervisor(c, logger)
	lookup := relaunch.NewHTTPLookup(c.Lookup.URL, c.Lookup.Timeout)
	srv := &http.Server{
		Addr:              c.Addr(),
		Handler:           rest.NewHandler(sup, c, logger, mem, lookup),
		ErrorLog:          logger.StdLogger(relaunch.LevelError),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server running on http://localhost:%d", c.Port)
		if e := srv.ListenAndServe(); !errors.Is(e, http.ErrServerClosed) {
			return e
		}
		return nil
	})
	g.Go(func() error {
		return sup.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Infof("Shutdown requested, stopping...")
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if e := srv.Shutdown(sctx); errors.Is(e, context.DeadlineExceeded) {
			// Long polls do not end on their own.
			return srv.Close()
		} else if e != nil {
			return e
		}
		return nil
	})

	if e := g.Wait(); e != nil {
		logger.Errorf("Exiting: %v", e)
		return e
	}
	logger.Infof("Stopped")
	return nil
}
