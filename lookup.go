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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// IPLookup finds the address this host is seen from on the Internet.
type IPLookup interface {
	PublicIP(ctx context.Context) (string, error)
}

// HTTPLookup asks an ipinfo.io style service, which answers a GET with
// a JSON object carrying an "ip" member.
type HTTPLookup struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPLookup(url string, timeout time.Duration) *HTTPLookup {
	return &HTTPLookup{URL: url, Client: &http.Client{}, Timeout: timeout}
}

func (l *HTTPLookup) PublicIP(ctx context.Context) (string, error) {
	ip, e := l.lookup(ctx)
	if e != nil {
		return "", &LookupError{URL: l.URL, Err: e}
	}
	return ip, nil
}

func (l *HTTPLookup) lookup(ctx context.Context) (string, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	req, e := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if e != nil {
		return "", e
	}
	req.Header.Set("Accept", "application/json")
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, e := client.Do(req)
	if e != nil {
		return "", e
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var v struct {
		IP string `json:"ip"`
	}
	if e := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&v); e != nil {
		return "", e
	}
	if v.IP == "" {
		return "", errors.New("response has no ip")
	}
	return v.IP, nil
}
