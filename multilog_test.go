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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a Logger with a fixed clock", t, func() {
		var buf bytes.Buffer
		l := NewLogger(LevelInfo, &buf)
		l.now = func() time.Time {
			return time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC)
		}

		Convey("Lines carry time and level", func() {
			l.Infof("Starting %s...", "p2pclient")
			So(buf.String(), ShouldEqual, "[2026-01-02T03:04:05.006Z] info: Starting p2pclient...\n")
		})

		Convey("Multi-line messages are split", func() {
			l.Warnf("one\ntwo\n")
			So(buf.String(), ShouldEqual,
				"[2026-01-02T03:04:05.006Z] warn: one\n[2026-01-02T03:04:05.006Z] warn: two\n")
		})

		Convey("Lines below the level are dropped", func() {
			l.Debugf("noise")
			So(buf.Len(), ShouldEqual, 0)
			l.SetLevel(LevelDebug)
			So(l.Level(), ShouldEqual, LevelDebug)
			l.Debugf("noise")
			So(buf.String(), ShouldContainSubstring, "debug: noise")
		})

		Convey("Log does not format", func() {
			l.Log(LevelError, "100% done")
			So(buf.String(), ShouldEndWith, "error: 100% done\n")
		})

		Convey("Forwarded child output ignores the level", func() {
			l.SetLevel(LevelError)
			l.Infof("dropped")
			l.Forward(LevelInfo, "child says hi")
			So(buf.String(), ShouldEqual, "[2026-01-02T03:04:05.006Z] info: child says hi\n")
		})

		Convey("Every writer gets every line", func() {
			var other bytes.Buffer
			mem := NewLog(10)
			l.AddWriter(&other)
			l.AddWriter(mem)
			l.AddWriter(&other)
			l.Errorf("boom")
			So(other.String(), ShouldEqual, buf.String())
			So(strings.Count(other.String(), "\n"), ShouldEqual, 1)
			So(len(mem.Tail(10)), ShouldEqual, 1)

			l.DelWriter(&other)
			l.Infof("after")
			So(other.String(), ShouldNotContainSubstring, "after")
			So(buf.String(), ShouldContainSubstring, "after")
		})

		Convey("Writer and StdLogger feed the logger", func() {
			l.Writer(LevelWarn).Write([]byte("from writer\n"))
			l.StdLogger(LevelError).Print("from log")
			So(buf.String(), ShouldContainSubstring, "] warn: from writer\n")
			So(buf.String(), ShouldContainSubstring, "] error: from log\n")
		})

		Convey("Files are appended to", func() {
			path := filepath.Join(t.TempDir(), "logs", "relaunch.log")
			So(l.OpenFile(path), ShouldBeNil)
			l.Infof("first")
			So(l.Close(), ShouldBeNil)
			So(l.OpenFile(path), ShouldBeNil)
			l.Infof("second")
			So(l.Close(), ShouldBeNil)
			l.Infof("third")

			b, e := os.ReadFile(path)
			So(e, ShouldBeNil)
			So(string(b), ShouldEqual,
				"[2026-01-02T03:04:05.006Z] info: first\n[2026-01-02T03:04:05.006Z] info: second\n")
		})
	})

	Convey("Levels parse by name", t, func() {
		for name, lvl := range map[string]Level{
			"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
			"warning": LevelWarn, "Error": LevelError,
		} {
			got, e := ParseLevel(name)
			So(e, ShouldBeNil)
			So(got, ShouldEqual, lvl)
		}
		_, e := ParseLevel("loud")
		So(e, ShouldNotBeNil)
		So(LevelWarn.String(), ShouldEqual, "warn")
	})
}
