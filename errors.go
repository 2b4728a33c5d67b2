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
)

var (
	ErrNotRunning     = errors.New("Child process is not running")
	ErrAlreadyRunning = errors.New("Supervisor is already running")
	ErrNoTarget       = errors.New("No connection target configured")
	ErrNoURL          = errors.New("No artifact URL configured")
	ErrNoArtifact     = errors.New("Artifact not found after download")
	ErrBadStatus      = errors.New("Unexpected HTTP status")
)

// FetchError reports a failure to retrieve the artifact.  When a
// FetchError is returned, no file remains at Path.
type FetchError struct {
	Path      string
	URL       string
	Err       error
	Permanent bool // Retrying will not help
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Path, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// LaunchError reports that the child could not be started at all.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// LookupError reports a failed public address lookup.
type LookupError struct {
	URL string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.URL, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
