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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the supervisor's Prometheus collectors, registered on a
// registry of their own so that several supervisors (as in tests) do not
// collide on the default one.
type Metrics struct {
	registry       *prometheus.Registry
	starts         prometheus.Counter
	exits          *prometheus.CounterVec
	launchFailures prometheus.Counter
	fetches        *prometheus.CounterVec
	running        prometheus.Gauge
	restartDelay   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaunch_child_starts_total",
			Help: "Number of times the child process was started",
		}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaunch_child_exits_total",
			Help: "Number of child process exits by result",
		}, []string{"result"}), // "success", "failure", "signal"
		launchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaunch_launch_failures_total",
			Help: "Number of times the child process could not be started",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaunch_fetch_attempts_total",
			Help: "Number of artifact download attempts by result",
		}, []string{"result"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaunch_child_running",
			Help: "1 while a child process is running",
		}),
		restartDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaunch_restart_delay_seconds",
			Help: "Delay applied before the most recent relaunch",
		}),
	}
	m.registry.MustRegister(
		m.starts,
		m.exits,
		m.launchFailures,
		m.fetches,
		m.running,
		m.restartDelay,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is what the /metrics endpoint gathers from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) childStarted() {
	m.starts.Inc()
	m.running.Set(1)
}

func (m *Metrics) childExited(x Exit) {
	m.running.Set(0)
	switch {
	case x.Signal != "":
		m.exits.WithLabelValues("signal").Inc()
	case x.Success():
		m.exits.WithLabelValues("success").Inc()
	default:
		m.exits.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) launchFailed() {
	m.launchFailures.Inc()
}

func (m *Metrics) fetched(e error) {
	if e != nil {
		m.fetches.WithLabelValues("failure").Inc()
	} else {
		m.fetches.WithLabelValues("success").Inc()
	}
}

func (m *Metrics) delayed(d time.Duration) {
	m.restartDelay.Set(d.Seconds())
}
