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
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nightlyone/lockfile"
)

// ArtifactMode is the permission given to a fetched artifact.
const ArtifactMode os.FileMode = 0755

// IsPermanent reports whether retrying a failed fetch is pointless.
func IsPermanent(e error) bool {
	var fe *FetchError
	return errors.As(e, &fe) && fe.Permanent
}

// HTTPFetcher downloads the artifact with a plain GET.  The body is
// written to a temporary file next to the destination, marked
// executable, and then renamed into place, so the destination either
// does not exist or holds a complete download.  A lock file beside the
// destination keeps two fetchers from writing the same artifact.
//
// There is no checksum or content type validation; whatever the server
// returns with a 2xx status becomes the artifact.
type HTTPFetcher struct {
	Client  *http.Client
	Logger  *Logger
	Timeout time.Duration // Per fetch, 0 = none
}

func NewHTTPFetcher(logger *Logger, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{},
		Logger:  logger,
		Timeout: timeout,
	}
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, dest string, url string) error {
	fail := func(e error, permanent bool) error {
		f.Logger.Errorf("Failed to download %s: %v", url, e)
		return &FetchError{Path: dest, URL: url, Err: e, Permanent: permanent}
	}

	abs, e := filepath.Abs(dest)
	if e != nil {
		return fail(e, true)
	}
	if e := os.MkdirAll(filepath.Dir(abs), 0755); e != nil {
		return fail(e, true)
	}
	lock, e := lockfile.New(abs + ".lock")
	if e != nil {
		return fail(e, true)
	}
	if e := lock.TryLock(); e != nil {
		return fail(fmt.Errorf("artifact is locked: %w", e), false)
	}
	defer lock.Unlock()

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, e := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if e != nil {
		return fail(e, true)
	}
	f.Logger.Debugf("GET %s", url)
	resp, e := f.client().Do(req)
	if e != nil {
		return fail(e, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e = fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusGone:
			return fail(e, true)
		}
		return fail(e, false)
	}

	part := abs + ".part"
	n, e := writeArtifact(part, resp.Body)
	if e == nil {
		e = os.Rename(part, abs)
	}
	if e != nil {
		os.Remove(part)
		return fail(e, false)
	}
	f.Logger.Infof("Saved %d bytes to %s and marked it executable", n, dest)
	return nil
}

func writeArtifact(path string, r io.Reader) (int64, error) {
	file, e := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if e != nil {
		return 0, e
	}
	n, e := io.Copy(file, r)
	if ce := file.Close(); e == nil {
		e = ce
	}
	if e != nil {
		return n, e
	}
	// Chmod rather than create with the final mode, as the umask would
	// otherwise decide.
	return n, os.Chmod(path, ArtifactMode)
}
