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
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Exit describes how a child ended.  A child exiting is the normal,
// recurring event that drives the restart loop, not an error.
type Exit struct {
	Code     int           `json:"code"`
	Signal   string        `json:"signal,omitempty"`
	Error    string        `json:"error,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Success is true for a zero exit code, not caused by a signal.
func (x Exit) Success() bool {
	return x.Code == 0 && x.Signal == "" && x.Error == ""
}

func (x Exit) String() string {
	switch {
	case x.Signal != "":
		return "signal " + x.Signal
	case x.Error != "":
		return x.Error
	}
	return fmt.Sprintf("code %d", x.Code)
}

// Process is an operating system child process whose standard output
// and standard error are forwarded, a line at a time, to a Logger at
// info and error level respectively, whatever the Logger's level.  The process is placed in its own
// process group where supported, so that stopping it also reaches any
// helpers it spawned.
type Process struct {
	path     string
	cmd      *exec.Cmd
	logger   *Logger
	start    time.Time
	exit     Exit
	done     chan struct{}
	stopping bool
	timer    *time.Timer
	readers  sync.WaitGroup
	lock     sync.Mutex
}

func (p *Process) doLog(r io.Reader, level Level) {
	defer p.readers.Done()
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); len(line) != 0 {
			p.logger.Forward(level, line)
		}
		if err != nil {
			return
		}
	}
}

func (p *Process) doWait() {
	// The pipes must be drained before Wait closes them.
	p.readers.Wait()
	e := p.cmd.Wait()

	x := Exit{Started: p.start, Duration: time.Since(p.start)}
	if ps := p.cmd.ProcessState; ps != nil {
		x.Code = ps.ExitCode()
		x.Signal = exitSignal(ps)
	} else if e != nil {
		x.Code = -1
		x.Error = e.Error()
	}

	p.lock.Lock()
	p.exit = x
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	p.lock.Unlock()
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *Process) Wait() Exit {
	<-p.done
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.exit
}

func (p *Process) Stop(grace time.Duration) {
	p.lock.Lock()
	defer p.lock.Unlock()

	select {
	case <-p.done:
		return
	default:
	}
	if p.stopping {
		return
	}
	p.stopping = true
	if e := terminate(p.cmd.Process); e != nil {
		p.logger.Warnf("Failed sending termination request to %s: %v", p.path, e)
	}
	if grace > 0 {
		p.timer = time.AfterFunc(grace, func() {
			select {
			case <-p.done:
				return
			default:
			}
			p.logger.Warnf("Graceful shutdown of %s timed out, killing it", p.path)
			if e := kill(p.cmd.Process); e != nil {
				p.logger.Errorf("Failed killing %s: %v", p.path, e)
			}
		})
	}
}

// StartProcess starts path with args, which excludes the program name.
// It returns once the process is running; output forwarding and reaping
// happen in the background.
func StartProcess(path string, args []string, logger *Logger) (*Process, error) {
	cmd := exec.Command(path, args...)
	setProcAttr(cmd)

	stdout, e := cmd.StdoutPipe()
	if e != nil {
		return nil, e
	}
	stderr, e := cmd.StderrPipe()
	if e != nil {
		return nil, e
	}
	if e := cmd.Start(); e != nil {
		return nil, e
	}

	p := &Process{
		path:   path,
		cmd:    cmd,
		logger: logger,
		start:  time.Now(),
		done:   make(chan struct{}),
	}
	p.readers.Add(2)
	go p.doLog(stdout, LevelInfo)
	go p.doLog(stderr, LevelError)
	go p.doWait()
	return p, nil
}

// ExecLauncher launches children as operating system processes.
type ExecLauncher struct {
	Logger *Logger
}

func (l *ExecLauncher) Launch(path string, args []string) (Child, error) {
	p, e := StartProcess(path, args, l.Logger)
	if e != nil {
		return nil, e
	}
	return p, nil
}
