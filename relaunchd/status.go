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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gdamore/relaunch/rest"
)

var (
	watchStatus bool
	followLog   bool
	logLines    int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running daemon",
	RunE:  runStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the recent log of a running daemon",
	RunE:  runLogs,
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the child of a running daemon without delay",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := rest.NewClient(nil, daemonBase())
		if e := c.Restart(cmd.Context()); e != nil {
			return fmt.Errorf("restart failed: %w", e)
		}
		fmt.Println("Restart requested")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(restartCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "print the status again whenever it changes")
	logsCmd.Flags().BoolVarP(&followLog, "follow", "f", false, "keep printing new lines")
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 20, "number of lines to print first (0 for all)")
}

func printStatus(info *rest.StatusInfo) error {
	if isJSONOutput() {
		b, e := json.MarshalIndent(info, "", "  ")
		if e != nil {
			return e
		}
		fmt.Println(string(b))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Host", info.Host.Hostname})
	table.Append([]string{"Artifact", info.Artifact})
	table.Append([]string{"State", info.State.String()})
	table.Append([]string{"Since", info.Since.Format(time.RFC3339)})
	table.Append([]string{"Reason", info.Reason})
	table.Append([]string{"Starts", strconv.Itoa(info.Starts)})
	if info.Pid != 0 {
		table.Append([]string{"PID", strconv.Itoa(info.Pid)})
	}
	if info.Usage != nil {
		table.Append([]string{"Memory", fmt.Sprintf("%.1f MB", float64(info.Usage.RSS)/(1<<20))})
		table.Append([]string{"CPU", fmt.Sprintf("%.1f%%", info.Usage.CPUPercent)})
	}
	if info.LastExit != nil {
		table.Append([]string{"Last exit", info.LastExit.String()})
		table.Append([]string{"Last run", info.LastExit.Duration.Round(time.Second).String()})
	}
	if info.Delay > 0 {
		table.Append([]string{"Restart delay", info.Delay.String()})
	}
	table.Render()
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c := rest.NewClient(nil, daemonBase())
	info, e := c.Status(ctx)
	if e != nil {
		return fmt.Errorf("failed to get status: %w", e)
	}
	if e := printStatus(info); e != nil {
		return e
	}
	for watchStatus {
		next, e := c.WatchStatus(ctx, info)
		if e != nil {
			return fmt.Errorf("failed to watch status: %w", e)
		}
		if next != info {
			fmt.Println()
			if e := printStatus(next); e != nil {
				return e
			}
			info = next
		}
	}
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c := rest.NewClient(nil, daemonBase())
	li, e := c.GetLog(ctx)
	if e != nil {
		return fmt.Errorf("failed to get log: %w", e)
	}
	recs := li.Records
	if logLines > 0 && len(recs) > logLines {
		recs = recs[len(recs)-logLines:]
	}
	var last int64
	for _, r := range recs {
		fmt.Println(r.Text)
	}
	if len(li.Records) > 0 {
		last = li.Records[len(li.Records)-1].Id
	}

	for followLog {
		next, e := c.WatchLog(ctx, li)
		if e != nil {
			return fmt.Errorf("failed to follow log: %w", e)
		}
		for _, r := range next.NewRecords(last) {
			fmt.Println(r.Text)
			last = r.Id
		}
		li = next
	}
	return nil
}
