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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTailFile(t *testing.T) {
	Convey("Given a log file", t, func() {
		path := filepath.Join(t.TempDir(), "relaunch.log")
		write := func(s string) {
			So(os.WriteFile(path, []byte(s), 0644), ShouldBeNil)
		}

		Convey("The last lines come back in order", func() {
			var sb strings.Builder
			for i := 1; i <= 25; i++ {
				fmt.Fprintf(&sb, "L%d\n", i)
			}
			write(sb.String())
			lines, e := TailFile(path, 20)
			So(e, ShouldBeNil)
			So(len(lines), ShouldEqual, 20)
			So(lines[0], ShouldEqual, "L6")
			So(lines[19], ShouldEqual, "L25")
		})

		Convey("A short file comes back whole", func() {
			write("one\ntwo\r\nthree\n")
			lines, e := TailFile(path, 20)
			So(e, ShouldBeNil)
			So(lines, ShouldResemble, []string{"one", "two", "three"})
		})

		Convey("A partial last line is kept", func() {
			write("one\ntwo")
			lines, e := TailFile(path, 1)
			So(e, ShouldBeNil)
			So(lines, ShouldResemble, []string{"two"})
		})

		Convey("Lines spanning blocks are intact", func() {
			long := strings.Repeat("x", 3*tailBlockSize)
			write("first\n" + long + "\nlast\n")
			lines, e := TailFile(path, 2)
			So(e, ShouldBeNil)
			So(lines, ShouldResemble, []string{long, "last"})
		})

		Convey("An empty file has no lines", func() {
			write("")
			lines, e := TailFile(path, 20)
			So(e, ShouldBeNil)
			So(len(lines), ShouldEqual, 0)
		})

		Convey("A missing file is reported as such", func() {
			_, e := TailFile(path, 20)
			So(os.IsNotExist(e), ShouldBeTrue)
		})
	})
}
