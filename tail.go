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
	"bytes"
	"io"
	"os"
	"strings"
)

const tailBlockSize = 4096

// TailFile returns the last n lines of the file at path, in their
// original order.  A final newline does not count as starting another
// line, but a final line without one (a write in progress) is returned
// as is.  The file is read backwards in blocks, so the cost depends on
// n rather than on the file size.  If the file does not exist the error
// satisfies os.IsNotExist.
func TailFile(path string, n int) ([]string, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()

	if n <= 0 {
		return []string{}, nil
	}
	info, e := f.Stat()
	if e != nil {
		return nil, e
	}

	off := info.Size()
	var buf []byte
	for off > 0 {
		sz := int64(tailBlockSize)
		if off < sz {
			sz = off
		}
		off -= sz
		chunk := make([]byte, sz, int(sz)+len(buf))
		if _, e := f.ReadAt(chunk, off); e != nil && e != io.EOF {
			return nil, e
		}
		buf = append(chunk, buf...)
		// n newlines before the end means we hold n complete lines,
		// plus the (possibly partial) line that precedes them.
		if bytes.Count(trimNewline(buf), []byte{'\n'}) >= n {
			break
		}
	}

	text := string(trimNewline(buf))
	if len(text) == 0 && off == 0 && len(buf) == 0 {
		return []string{}, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines, nil
}

func trimNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b[:len(b)-1]
	}
	return b
}
