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

package rest

import (
	"github.com/gdamore/relaunch"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// A client holding a current Etag can ask the server to hold the
	// request until the value changes, by repeating the Etag in
	// PollEtagHeader and giving the most seconds to wait in
	// PollTimeHeader.
	PollEtagHeader = "X-Relaunch-Poll-Etag"
	PollTimeHeader = "X-Relaunch-Poll-Time"

	maxPollSecs = 300
)

var ok struct{}

// StatusInfo is the body of GET /api/status.
type StatusInfo struct {
	relaunch.Status
	Host  relaunch.HostInfo `json:"host"`
	Usage *relaunch.Usage   `json:"usage,omitempty"`
	etag  string
}

// LogInfo is the in-memory log as returned by GET /api/log.
type LogInfo struct {
	etag    string
	Records []relaunch.LogRecord
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
