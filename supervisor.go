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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is where the supervision loop currently is.
type State int

const (
	StateChecking  State = iota // CHECKING_ARTIFACT
	StateFetching               // FETCHING
	StateLaunching              // LAUNCHING
	StateRunning                // RUNNING
	StateWaiting                // WAITING_TO_RESTART
	StateStopped                // STOPPED
)

var stateNames = []string{
	"CHECKING_ARTIFACT",
	"FETCHING",
	"LAUNCHING",
	"RUNNING",
	"WAITING_TO_RESTART",
	"STOPPED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(b))
}

// Status is a snapshot of the supervisor.
type Status struct {
	State    State         `json:"state"`
	Reason   string        `json:"reason"`
	Since    time.Time     `json:"since"`
	Serial   int64         `json:"serial,string"`
	Artifact string        `json:"artifact"`
	Pid      int           `json:"pid,omitempty"`
	Starts   int           `json:"starts"`
	Delay    time.Duration `json:"delay"`
	LastExit *Exit         `json:"lastExit,omitempty"`
}

// Supervisor keeps one child process running.  It makes sure the
// artifact is present, downloading it when it is not, launches it,
// waits for it to exit, and launches it again after a delay, for as
// long as Run is active.  All failures come back to Run's loop, which
// alone decides on retries and delays.
//
// The loop moves through these states:
//
//	CHECKING_ARTIFACT --missing--> FETCHING --failed--> STOPPED
//	       |                          |
//	    present                    fetched
//	       |                          |
//	       +--------> LAUNCHING <-----+
//	                      |
//	        started       |       could not start
//	     +----------------+------------------+
//	     |                                   |
//	  RUNNING --exited--> WAITING_TO_RESTART <+
//	                              |
//	                      delay elapsed
//	                              |
//	                      CHECKING_ARTIFACT ...
//
// Cancelling Run's context, or calling Stop, moves to STOPPED from any
// state; a running child is terminated and reaped first.
type Supervisor struct {
	path     string
	url      string
	args     []string
	grace    time.Duration
	restart  RestartPolicy
	fetch    FetchPolicy
	fetcher  Fetcher
	launcher Launcher
	logger   *Logger
	metrics  *Metrics
	observer func(State, string)

	state    State
	reason   string
	stamp    time.Time
	serial   int64
	child    Child
	starts   int
	delay    time.Duration
	lastExit *Exit
	active   bool
	pending  bool // Stop called with no Run active
	cancel   context.CancelFunc
	done     chan struct{}
	kick     chan struct{}
	cvs      map[*sync.Cond]bool
	mx       sync.Mutex
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

func WithFetcher(f Fetcher) Option {
	return func(s *Supervisor) { s.fetcher = f }
}

func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) { s.launcher = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithObserver registers a function called on every state change, with
// the supervisor's lock held.  It must not call back into the
// Supervisor.
func WithObserver(fn func(State, string)) Option {
	return func(s *Supervisor) { s.observer = fn }
}

// NewSupervisor returns a stopped Supervisor for the artifact, child
// arguments and policies in c.
func NewSupervisor(c *Config, logger *Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		path:    c.Artifact.Path,
		url:     c.Artifact.URL,
		args:    c.Args(),
		grace:   c.Stop.Timeout,
		restart: c.Restart,
		fetch:   c.Fetch,
		logger:  logger,
		state:   StateStopped,
		reason:  "Not started",
		stamp:   time.Now(),
		kick:    make(chan struct{}, 1),
		cvs:     make(map[*sync.Cond]bool),
	}
	if s.restart.MaxDelay < s.restart.Delay {
		s.restart.MaxDelay = s.restart.Delay
	}
	if s.restart.Multiplier < 1 {
		s.restart.Multiplier = 1
	}
	if s.fetch.Attempts < 1 {
		s.fetch.Attempts = 1
	}
	for _, o := range opts {
		o(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(logger, c.Fetch.Timeout)
	}
	if s.launcher == nil {
		s.launcher = &ExecLauncher{Logger: logger}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

func (s *Supervisor) lock() {
	s.mx.Lock()
}

func (s *Supervisor) unlock() {
	s.mx.Unlock()
}

func (s *Supervisor) name() string {
	return filepath.Base(s.path)
}

// Metrics returns the collectors this supervisor updates.
func (s *Supervisor) Metrics() *Metrics {
	return s.metrics
}

// setState records a transition and wakes watchers.  Call with lock held.
func (s *Supervisor) setState(state State, reason string) {
	s.state = state
	s.reason = reason
	s.stamp = time.Now()
	s.serial++
	for cv := range s.cvs {
		cv.Broadcast()
	}
	if s.observer != nil {
		s.observer(state, reason)
	}
}

func (s *Supervisor) transition(state State, reason string) {
	s.lock()
	s.setState(state, reason)
	s.unlock()
}

// Run supervises until ctx is cancelled or Stop is called, in which
// case it returns nil once any child has been reaped.  It returns a
// *FetchError if the artifact is missing and could not be downloaded,
// and ErrAlreadyRunning if another Run is active.  If Stop was called
// while no Run was active, Run returns nil at once.
func (s *Supervisor) Run(ctx context.Context) error {
	s.lock()
	if s.active {
		s.unlock()
		return ErrAlreadyRunning
	}
	if s.pending {
		s.pending = false
		s.setState(StateStopped, "Stopped before start")
		s.unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.active = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.unlock()

	e := s.loop(ctx)
	cancel()

	s.lock()
	s.active = false
	s.cancel = nil
	if e != nil {
		s.setState(StateStopped, e.Error())
	} else {
		s.setState(StateStopped, "Stopped")
	}
	close(s.done)
	s.unlock()
	return e
}

// Stop makes an active Run return, and waits for it to do so.  With no
// Run active, it makes the next Run return without starting anything.
func (s *Supervisor) Stop() {
	s.lock()
	cancel, done := s.cancel, s.done
	if cancel == nil {
		s.pending = true
		s.unlock()
		return
	}
	s.unlock()
	cancel()
	<-done
}

// Restart terminates the running child, if any, and launches it again
// without waiting out the restart delay.  It returns ErrNotRunning when
// Run is not active.
func (s *Supervisor) Restart() error {
	s.lock()
	active := s.active
	s.unlock()
	if !active {
		return ErrNotRunning
	}
	select {
	case s.kick <- struct{}{}:
	default:
		// A request is already pending.
	}
	return nil
}

func (s *Supervisor) loop(ctx context.Context) error {
	delays := s.restart.backoff()
	for {
		if e := s.ensureArtifact(ctx); e != nil {
			if ctx.Err() != nil {
				return nil
			}
			return e
		}

		x, kicked, e := s.runChild(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if x != nil && s.restart.ResetAfter > 0 && x.Duration >= s.restart.ResetAfter {
			delays.Reset()
		}
		var delay time.Duration
		if !kicked {
			delay = s.restart.bound(delays.NextBackOff())
		}

		s.lock()
		s.delay = delay
		if e != nil {
			s.setState(StateWaiting, e.Error())
		} else {
			s.setState(StateWaiting, "Exited with "+x.String())
		}
		s.unlock()
		s.metrics.delayed(delay)

		switch {
		case e != nil:
			s.logger.Warnf("Retrying launch of %s in %v...", s.name(), delay)
		case kicked:
			s.logger.Warnf("%s exited with %s. Restarting now on request.", s.name(), x)
		default:
			s.logger.Warnf("%s exited with %s. Restarting in %v...", s.name(), x, delay)
			if !x.Success() {
				s.logger.Errorf("%s exited with an error: %s", s.name(), x)
			}
		}

		if !s.sleep(ctx, delay) {
			return nil
		}
	}
}

// sleep waits for d, or less if a restart is requested.  It returns
// false if ctx was cancelled.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	case <-s.kick:
		s.logger.Infof("Restart of %s requested, skipping delay", s.name())
		return true
	}
}

func artifactExists(path string) bool {
	info, e := os.Stat(path)
	return e == nil && info.Mode().IsRegular()
}

func (s *Supervisor) ensureArtifact(ctx context.Context) error {
	s.transition(StateChecking, "Checking for "+s.path)
	if artifactExists(s.path) {
		return nil
	}

	if s.url == "" {
		e := &FetchError{Path: s.path, Err: ErrNoURL, Permanent: true}
		s.logger.Errorf("%s is missing and cannot be downloaded: %v", s.path, ErrNoURL)
		return e
	}

	s.transition(StateFetching, "Downloading from "+s.url)
	s.logger.Infof("Downloading %s from %s...", s.name(), s.url)

	attempt := 0
	op := func() error {
		attempt++
		e := s.fetcher.Fetch(ctx, s.path, s.url)
		s.metrics.fetched(e)
		if e != nil && IsPermanent(e) {
			return &backoff.PermanentError{Err: e}
		}
		return e
	}
	notify := func(e error, d time.Duration) {
		s.logger.Warnf("Download attempt %d of %d failed, retrying in %v",
			attempt, s.fetch.Attempts, d.Round(time.Millisecond))
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(s.fetch.backoff(), uint64(s.fetch.Attempts-1)), ctx)

	if e := backoff.RetryNotify(op, b, notify); e != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var fe *FetchError
		if !errors.As(e, &fe) {
			fe = &FetchError{Path: s.path, URL: s.url, Err: e}
		}
		s.logger.Errorf("Failed to download %s after %d attempt(s): %v",
			s.name(), attempt, fe.Err)
		return fe
	}
	if !artifactExists(s.path) {
		e := &FetchError{Path: s.path, URL: s.url, Err: ErrNoArtifact}
		s.logger.Errorf("%s not found even after download", s.path)
		return e
	}
	s.logger.Infof("%s downloaded successfully.", s.name())
	return nil
}

// runChild launches the artifact and waits for it to end.  The returned
// Exit is nil only when the launch itself failed, which is reported as a
// *LaunchError.  kicked is true if the child was stopped by Restart.
func (s *Supervisor) runChild(ctx context.Context) (x *Exit, kicked bool, e error) {
	if e = ctx.Err(); e != nil {
		return nil, false, e
	}
	// A restart requested before this launch is satisfied by it.
	select {
	case <-s.kick:
	default:
	}

	s.transition(StateLaunching, "Starting "+s.path)
	s.logger.Infof("Starting %s...", s.name())
	child, e := s.launcher.Launch(s.path, s.args)
	if e != nil {
		s.metrics.launchFailed()
		s.logger.Errorf("Failed to start %s: %v", s.name(), e)
		return nil, false, &LaunchError{Path: s.path, Err: e}
	}
	s.metrics.childStarted()

	pid := child.Pid()
	s.lock()
	s.child = child
	s.starts++
	s.setState(StateRunning, fmt.Sprintf("Running as pid %d", pid))
	s.unlock()

	exited := make(chan Exit, 1)
	go func() {
		exited <- child.Wait()
	}()

	var ex Exit
	select {
	case ex = <-exited:
	case <-ctx.Done():
		s.logger.Infof("Stopping %s (pid %d)...", s.name(), pid)
		child.Stop(s.grace)
		ex = <-exited
		s.logger.Infof("%s stopped (%s)", s.name(), ex)
	case <-s.kick:
		kicked = true
		s.logger.Infof("Restarting %s (pid %d) on request", s.name(), pid)
		child.Stop(s.grace)
		ex = <-exited
	}
	s.metrics.childExited(ex)

	s.lock()
	s.child = nil
	s.lastExit = &ex
	s.unlock()
	return &ex, kicked, nil
}

// Status returns a snapshot of the supervisor.
func (s *Supervisor) Status() Status {
	s.lock()
	defer s.unlock()
	st := Status{
		State:    s.state,
		Reason:   s.reason,
		Since:    s.stamp,
		Serial:   s.serial,
		Artifact: s.path,
		Starts:   s.starts,
		Delay:    s.delay,
	}
	if s.child != nil {
		st.Pid = s.child.Pid()
	}
	if s.lastExit != nil {
		x := *s.lastExit
		st.LastExit = &x
	}
	return st
}

// Watch waits for the status serial to differ from last, or for expire
// to pass, and returns the serial then current.  An expire of zero
// polls.
func (s *Supervisor) Watch(last int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&s.mx)
	var timer *time.Timer
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.lock()
			expired = true
			cv.Broadcast()
			s.unlock()
		})
	} else {
		expired = true
	}

	s.lock()
	s.cvs[cv] = true
	for s.serial == last && !expired {
		cv.Wait()
	}
	delete(s.cvs, cv)
	rv := s.serial
	s.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

func (p RestartPolicy) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Delay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// bound clamps a jittered delay into [Delay, MaxDelay].
func (p RestartPolicy) bound(d time.Duration) time.Duration {
	if d < p.Delay {
		return p.Delay
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p FetchPolicy) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.Interval > 0 {
		b.InitialInterval = p.Interval
	}
	if p.MaxInterval >= b.InitialInterval {
		b.MaxInterval = p.MaxInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	// The attempt count bounds the retries, not the elapsed time.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
