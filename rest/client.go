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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/relaunch"
)

// Client talks to the JSON API of a running daemon.
type Client struct {
	base   string // URI to root of tree on server
	client *http.Client
}

// poll issues an HTTP GET against the URL.  If etag is not empty the
// request is conditional, and with wait > 0 it becomes a long poll that
// the server holds until the value changes.  The new Etag is returned,
// or "" (and a nil error) if the value did not change.
func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {

	req, e := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if e != nil {
		return "", e
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}

	res, e := c.client.Do(req)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", &Error{Code: res.StatusCode, Message: res.Status}
	}
	body, e := io.ReadAll(res.Body)
	if e != nil {
		return "", e
	}
	if e := json.Unmarshal(body, v); e != nil {
		return "", e
	}
	return res.Header.Get("Etag"), nil
}

func (c *Client) post(ctx context.Context, url string) error {
	req, e := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(""))
	if e != nil {
		return e
	}
	req.Header.Set("Content-Type", "text/plain") // we don't really care
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg := &Error{Code: res.StatusCode, Message: res.Status}
		// Prefer the server's own explanation, when it gave one.
		if b, e := io.ReadAll(res.Body); e == nil {
			json.Unmarshal(b, msg)
		}
		return msg
	}
	return nil
}

func (c *Client) pollStatus(ctx context.Context, secs int, last *StatusInfo) (*StatusInfo, error) {
	otag := ""
	if last == nil {
		secs = 0
	} else {
		otag = last.etag
	}
	v := &StatusInfo{}
	etag, e := c.poll(ctx, c.base+"/api/status", otag, secs, v)
	if e != nil {
		return nil, e
	}
	if etag == "" && last != nil {
		return last, nil
	}
	v.etag = etag
	return v, nil
}

// Status fetches the current status.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	return c.pollStatus(ctx, 0, nil)
}

// WatchStatus waits for the status to differ from last, and returns the
// new status, or last itself if nothing changed within five minutes.
func (c *Client) WatchStatus(ctx context.Context, last *StatusInfo) (*StatusInfo, error) {
	return c.pollStatus(ctx, maxPollSecs, last)
}

func (c *Client) pollLog(ctx context.Context, secs int, last *LogInfo) (*LogInfo, error) {
	otag := ""
	if last == nil {
		secs = 0
	} else {
		otag = last.etag
	}
	v := &LogInfo{}
	etag, e := c.poll(ctx, c.base+"/api/log", otag, secs, &v.Records)
	if e != nil {
		return nil, e
	}
	if etag == "" && last != nil {
		return last, nil
	}
	v.etag = etag
	return v, nil
}

// GetLog returns the daemon's in-memory log.
func (c *Client) GetLog(ctx context.Context) (*LogInfo, error) {
	return c.pollLog(ctx, 0, nil)
}

// WatchLog waits for the log to differ from last.
func (c *Client) WatchLog(ctx context.Context, last *LogInfo) (*LogInfo, error) {
	return c.pollLog(ctx, maxPollSecs, last)
}

// Restart asks the daemon to restart its child right away.
func (c *Client) Restart(ctx context.Context) error {
	return c.post(ctx, c.base+"/api/restart")
}

// NewRecords returns the records in li newer than the ID after.
func (li *LogInfo) NewRecords(after int64) []relaunch.LogRecord {
	for i, r := range li.Records {
		if r.Id > after {
			return li.Records[i:]
		}
	}
	return nil
}

// NewClient returns a Client handle.  The transport maybe nil to use
// a default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	return &Client{
		base: strings.TrimRight(baseURI, "/"),
		client: &http.Client{
			Transport: t,
			// Long polls last up to maxPollSecs.
			Timeout: (maxPollSecs + 30) * time.Second,
		},
	}
}
