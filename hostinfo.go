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

package relaunch

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

type HostInfo struct {
	Hostname string        `json:"hostname"`
	OS       string        `json:"os,omitempty"`
	Platform string        `json:"platform,omitempty"`
	Uptime   time.Duration `json:"uptime,omitempty"`
}

// GetHostInfo never fails; fields it cannot learn are left empty, except
// the hostname, which falls back to os.Hostname.
func GetHostInfo(ctx context.Context) HostInfo {
	var hi HostInfo
	if info, e := host.InfoWithContext(ctx); e == nil {
		hi.Hostname = info.Hostname
		hi.OS = info.OS
		hi.Platform = info.Platform
		hi.Uptime = time.Duration(info.Uptime) * time.Second
	}
	if hi.Hostname == "" {
		hi.Hostname, _ = os.Hostname()
	}
	return hi
}

// Usage is the resource consumption of a running child.
type Usage struct {
	RSS        uint64  `json:"rss"`
	CPUPercent float64 `json:"cpu"`
}

func GetUsage(ctx context.Context, pid int) (*Usage, error) {
	p, e := process.NewProcessWithContext(ctx, int32(pid))
	if e != nil {
		return nil, e
	}
	u := &Usage{}
	if mi, e := p.MemoryInfoWithContext(ctx); e != nil {
		return nil, e
	} else {
		u.RSS = mi.RSS
	}
	if cpu, e := p.CPUPercentWithContext(ctx); e == nil {
		u.CPUPercent = cpu
	}
	return u, nil
}
