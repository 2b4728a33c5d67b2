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

// Package relaunch keeps a single externally sourced executable running.
//
// A Supervisor makes sure the executable (the artifact) is present on
// disk, downloading it with a Fetcher when it is not, launches it with a
// fixed argument vector, forwards its output to a Logger, and launches it
// again after a backoff delay whenever it exits.  This is much like a one
// service version of supervisord, intended to be embedded in a small
// daemon together with a status page.
//
// The Logger writes every line as "[timestamp] level: message" to the
// console, an append-only file, and an in-memory Log.  The status page
// reads the file back with TailFile.
package relaunch
