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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gdamore/relaunch"
)

var (
	cfgFile      string
	daemonURL    string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "relaunchd",
	Short: "Keep a downloaded executable running",
	Long: `relaunchd downloads an executable if it is missing, runs it with a fixed
set of arguments, restarts it whenever it exits, and serves a status page
showing the host and the tail of the log.

Run without a subcommand it behaves like "relaunchd run".`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./relaunch.yaml or /etc/relaunch/relaunch.yaml)")
	rootCmd.PersistentFlags().StringVar(&daemonURL, "daemon", "", "URL of a running daemon (default http://localhost:<port>)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table or json")
	addRunFlags(rootCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	v := viper.GetViper()
	relaunch.SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/relaunch")
		v.SetConfigName("relaunch")
		v.SetConfigType("yaml")
	}
	if e := relaunch.BindEnv(v); e != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", e)
		os.Exit(1)
	}

	if e := v.ReadInConfig(); e != nil {
		var nf viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(e, &nf) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", e)
			os.Exit(1)
		}
	}
}

// daemonBase returns the URL the client subcommands talk to.
func daemonBase() string {
	if daemonURL != "" {
		return strings.TrimRight(daemonURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", viper.GetInt("port"))
}

func isJSONOutput() bool {
	return outputFormat == "json"
}
