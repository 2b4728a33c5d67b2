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
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gdamore/relaunch"
)

var showSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration relaunchd would run with, after merging
the defaults, the config file and the environment.  The connection target is
hidden unless --show-secrets is given.  Problems that would stop the daemon
from starting are listed after it.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print the connection target in clear")
}

func runConfig(cmd *cobra.Command, args []string) error {
	c, e := relaunch.DecodeConfig(viper.GetViper())
	if e != nil {
		return e
	}
	problems := c.Validate()
	if !showSecrets {
		c = c.Redacted()
	}
	b, e := yaml.Marshal(c)
	if e != nil {
		return fmt.Errorf("failed to encode config: %w", e)
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(b))
	if problems != nil {
		fmt.Fprintf(out, "\n# invalid configuration:\n# %s\n",
			strings.ReplaceAll(problems.Error(), "\n", "\n# "))
	}
	return nil
}
