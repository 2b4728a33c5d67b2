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
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override
// configuration keys, with dots replaced by underscores; for example
// RELAUNCH_CHILD_TARGET sets child.target.  The port can also be given
// with a bare PORT.
const EnvPrefix = "RELAUNCH"

// DefaultPort is used when neither the configuration nor PORT set one.
const DefaultPort = 5000

type ArtifactConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	URL  string `mapstructure:"url" yaml:"url"`
}

// ChildConfig builds the argument vector: the mode flags, then "-P"
// and the connection target.  The target usually carries credentials.
type ChildConfig struct {
	Flags  []string `mapstructure:"flags" yaml:"flags"`
	Target string   `mapstructure:"target" yaml:"target"`
}

type StopConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RestartPolicy controls the delay between a child exiting and the next
// launch.  The delay starts at Delay, grows by Multiplier after each
// restart, is randomized by up to Jitter in either direction, and drops
// back to Delay once a child has stayed up for ResetAfter.  The result
// always lies within [Delay, MaxDelay].  Multiplier 1 with Jitter 0
// gives a fixed delay.
type RestartPolicy struct {
	Delay      time.Duration `mapstructure:"delay" yaml:"delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter     float64       `mapstructure:"jitter" yaml:"jitter"`
	ResetAfter time.Duration `mapstructure:"reset_after" yaml:"reset_after"`
}

// FetchPolicy bounds the attempts to download a missing artifact.
// When all attempts fail the supervisor gives up.
type FetchPolicy struct {
	Attempts    int           `mapstructure:"attempts" yaml:"attempts"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxInterval time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LogConfig struct {
	File    string `mapstructure:"file" yaml:"file"`
	Level   string `mapstructure:"level" yaml:"level"`
	Records int    `mapstructure:"records" yaml:"records"`
}

type LookupConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type StatusConfig struct {
	Lines       int    `mapstructure:"lines" yaml:"lines"`
	Placeholder string `mapstructure:"placeholder" yaml:"placeholder"`
}

type Config struct {
	Port     int            `mapstructure:"port" yaml:"port"`
	Listen   string         `mapstructure:"listen" yaml:"listen"`
	Artifact ArtifactConfig `mapstructure:"artifact" yaml:"artifact"`
	Child    ChildConfig    `mapstructure:"child" yaml:"child"`
	Stop     StopConfig     `mapstructure:"stop" yaml:"stop"`
	Restart  RestartPolicy  `mapstructure:"restart" yaml:"restart"`
	Fetch    FetchPolicy    `mapstructure:"fetch" yaml:"fetch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Lookup   LookupConfig   `mapstructure:"lookup" yaml:"lookup"`
	Status   StatusConfig   `mapstructure:"status" yaml:"status"`
}

// SetDefaults registers every configuration key with its default, which
// also makes each key visible to environment lookups.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("listen", "")
	v.SetDefault("artifact.path", "artifact")
	v.SetDefault("artifact.url", "")
	v.SetDefault("child.flags", []string{})
	v.SetDefault("child.target", "")
	v.SetDefault("stop.timeout", 10*time.Second)
	v.SetDefault("restart.delay", 5*time.Second)
	v.SetDefault("restart.max_delay", time.Minute)
	v.SetDefault("restart.multiplier", 2.0)
	v.SetDefault("restart.jitter", 0.2)
	v.SetDefault("restart.reset_after", time.Minute)
	v.SetDefault("fetch.attempts", 5)
	v.SetDefault("fetch.interval", time.Second)
	v.SetDefault("fetch.max_interval", 30*time.Second)
	v.SetDefault("fetch.timeout", 5*time.Minute)
	v.SetDefault("log.file", "relaunch.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.records", MaxLogRecords)
	v.SetDefault("lookup.url", "https://ipinfo.io/json")
	v.SetDefault("lookup.timeout", 5*time.Second)
	v.SetDefault("status.lines", 20)
	v.SetDefault("status.placeholder", "Child process not started, check the process first!")
}

// BindEnv wires the environment into v.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if e := v.BindEnv("port", EnvPrefix+"_PORT", "PORT"); e != nil {
		return fmt.Errorf("bind port environment: %w", e)
	}
	return nil
}

// DecodeConfig decodes the configuration held by v without checking it.
func DecodeConfig(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if e := v.Unmarshal(c); e != nil {
		return nil, fmt.Errorf("decode config: %w", e)
	}
	return c, nil
}

// LoadConfig decodes and validates the configuration held by v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	c, e := DecodeConfig(v)
	if e != nil {
		return nil, e
	}
	if e := c.Validate(); e != nil {
		return nil, e
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Artifact.Path == "" {
		errs = append(errs, errors.New("artifact.path is empty"))
	}
	if strings.TrimSpace(c.Child.Target) == "" {
		errs = append(errs, ErrNoTarget)
	}
	if c.Restart.Delay <= 0 {
		errs = append(errs, errors.New("restart.delay must be positive"))
	}
	if c.Restart.MaxDelay < c.Restart.Delay {
		errs = append(errs, errors.New("restart.max_delay is below restart.delay"))
	}
	if c.Restart.Multiplier < 1 {
		errs = append(errs, errors.New("restart.multiplier must be at least 1"))
	}
	if c.Restart.Jitter < 0 || c.Restart.Jitter >= 1 {
		errs = append(errs, errors.New("restart.jitter must be in [0, 1)"))
	}
	if c.Fetch.Attempts < 1 {
		errs = append(errs, errors.New("fetch.attempts must be at least 1"))
	}
	if c.Status.Lines < 1 {
		errs = append(errs, errors.New("status.lines must be at least 1"))
	}
	if _, e := ParseLevel(c.Log.Level); e != nil {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Args returns the argument vector the child is launched with.
func (c *Config) Args() []string {
	args := make([]string, 0, len(c.Child.Flags)+2)
	args = append(args, c.Child.Flags...)
	return append(args, "-P", c.Child.Target)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Listen, strconv.Itoa(c.Port))
}

// Redacted returns a copy safe to print, with the target hidden.
func (c *Config) Redacted() *Config {
	r := *c
	r.Child.Flags = append([]string(nil), c.Child.Flags...)
	if r.Child.Target != "" {
		r.Child.Target = "<redacted>"
	}
	return &r
}
