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
	"time"
)

// Child is a launched instance of the artifact.  The supervisor owns
// each Child exclusively, and launches a new one only after Wait on the
// previous one has returned.
type Child interface {
	// Pid returns the operating system process ID.
	Pid() int

	// Wait blocks until the process has exited and its output has
	// been fully forwarded, then reports how it ended.  It may be
	// called more than once; later calls return the same Exit.
	Wait() Exit

	// Stop asks the process to terminate, and forcibly kills it if it
	// is still running after grace.  A grace of zero waits forever.
	// It does not wait for the exit; use Wait for that.
	Stop(grace time.Duration)
}

// Launcher starts children.  ExecLauncher is the operating system
// implementation; tests substitute their own.
type Launcher interface {
	Launch(path string, args []string) (Child, error)
}

// Fetcher retrieves the artifact from url into dest, and makes it
// executable.  On failure no file may remain at dest.
type Fetcher interface {
	Fetch(ctx context.Context, dest string, url string) error
}
