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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	s := string(p)
	s = strings.Trim(s, "\n")
	tl.t.Log(s)
	return len(p), nil
}

// fakeChild is a child that runs until it is told to finish or stopped.
type fakeChild struct {
	pid     int
	exit    Exit
	done    chan struct{}
	stopped bool
	once    sync.Once
	onExit  func()
	mx      sync.Mutex
}

func (c *fakeChild) Pid() int {
	return c.pid
}

func (c *fakeChild) Wait() Exit {
	<-c.done
	return c.exit
}

func (c *fakeChild) Stop(grace time.Duration) {
	c.mx.Lock()
	c.stopped = true
	c.mx.Unlock()
	c.finish(Exit{Code: -1, Signal: "terminated"})
}

func (c *fakeChild) finish(x Exit) {
	c.once.Do(func() {
		c.exit = x
		if c.onExit != nil {
			c.onExit()
		}
		close(c.done)
	})
}

func (c *fakeChild) wasStopped() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.stopped
}

// fakeLauncher hands out fakeChilds.  With lifetime set, each child
// exits with exit after that long.
type fakeLauncher struct {
	err      error
	lifetime time.Duration
	exit     Exit
	launches int
	live     int
	maxLive  int
	args     []string
	times    []time.Time
	children []*fakeChild
	mx       sync.Mutex
}

func (l *fakeLauncher) Launch(path string, args []string) (Child, error) {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.times = append(l.times, time.Now())
	l.args = append([]string(nil), args...)
	if l.err != nil {
		l.launches++
		return nil, l.err
	}
	l.launches++
	l.live++
	if l.live > l.maxLive {
		l.maxLive = l.live
	}
	c := &fakeChild{pid: 1000 + l.launches, done: make(chan struct{})}
	c.onExit = func() {
		l.mx.Lock()
		l.live--
		l.mx.Unlock()
	}
	l.children = append(l.children, c)
	if l.lifetime > 0 {
		x := l.exit
		time.AfterFunc(l.lifetime, func() { c.finish(x) })
	}
	return c, nil
}

func (l *fakeLauncher) setError(e error) {
	l.mx.Lock()
	l.err = e
	l.mx.Unlock()
}

func (l *fakeLauncher) count() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.launches
}

func (l *fakeLauncher) last() *fakeChild {
	l.mx.Lock()
	defer l.mx.Unlock()
	if len(l.children) == 0 {
		return nil
	}
	return l.children[len(l.children)-1]
}

// fakeFetcher writes a small script to dest, or fails with err.
type fakeFetcher struct {
	err   error
	calls int
	mx    sync.Mutex
}

func (f *fakeFetcher) Fetch(ctx context.Context, dest string, url string) error {
	f.mx.Lock()
	f.calls++
	e := f.err
	f.mx.Unlock()
	if e != nil {
		return e
	}
	return os.WriteFile(dest, []byte("#!/bin/sh\nexit 0\n"), ArtifactMode)
}

func (f *fakeFetcher) count() int {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.calls
}

var errFakeLaunch = errors.New("exec format error")

func testConfig(dir string) *Config {
	return &Config{
		Port: DefaultPort,
		Artifact: ArtifactConfig{
			Path: filepath.Join(dir, "p2pclient"),
			URL:  "http://artifacts.example/p2pclient",
		},
		Child: ChildConfig{
			Flags:  []string{"--noeval", "--hard-aes"},
			Target: "user:secret@pool.example:3333",
		},
		Stop: StopConfig{Timeout: time.Second},
		Restart: RestartPolicy{
			Delay:      20 * time.Millisecond,
			MaxDelay:   20 * time.Millisecond,
			Multiplier: 1,
		},
		Fetch:  FetchPolicy{Attempts: 1, Interval: time.Millisecond},
		Log:    LogConfig{Level: "debug", Records: 100},
		Status: StatusConfig{Lines: 20, Placeholder: "not started"},
	}
}

func writeArtifactFile(path string) {
	So(os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), ArtifactMode), ShouldBeNil)
}

// waitFor polls cond for up to five seconds.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// logTexts returns the message part of every record in mem.
func logTexts(mem *Log) []string {
	var rv []string
	for _, r := range mem.Tail(MaxLogRecords) {
		if i := strings.Index(r.Text, ": "); i >= 0 {
			rv = append(rv, r.Text[i+2:])
		} else {
			rv = append(rv, r.Text)
		}
	}
	return rv
}

func logContains(mem *Log, sub string) bool {
	for _, s := range logTexts(mem) {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
