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
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLog(t *testing.T) {
	Convey("Given a small Log", t, func() {
		log := NewLog(3)
		_, id := log.GetRecords(0)

		Convey("It keeps only the newest records", func() {
			for i := 1; i <= 5; i++ {
				fmt.Fprintf(log, "line %d\n", i)
			}
			recs := log.Tail(10)
			So(len(recs), ShouldEqual, 3)
			So(recs[0].Text, ShouldEqual, "line 3")
			So(recs[2].Text, ShouldEqual, "line 5")
			So(recs[2].Id, ShouldEqual, recs[1].Id+1)

			So(len(log.Tail(2)), ShouldEqual, 2)
			So(log.Tail(2)[0].Text, ShouldEqual, "line 4")
		})

		Convey("A write of several lines makes several records", func() {
			log.Write([]byte("a\nb\n"))
			So(len(log.Tail(10)), ShouldEqual, 2)
		})

		Convey("GetRecords reports no change for the current ID", func() {
			log.Write([]byte("x\n"))
			recs, nid := log.GetRecords(id)
			So(nid, ShouldNotEqual, id)
			So(len(recs), ShouldEqual, 1)
			recs, same := log.GetRecords(nid)
			So(recs, ShouldBeNil)
			So(same, ShouldEqual, nid)
		})

		Convey("Clear empties it and changes the ID", func() {
			log.Write([]byte("x\n"))
			_, before := log.GetRecords(0)
			log.Clear()
			recs, after := log.GetRecords(0)
			So(len(recs), ShouldEqual, 0)
			So(after, ShouldNotEqual, before)
		})

		Convey("Watch wakes on a write", func() {
			go func() {
				time.Sleep(10 * time.Millisecond)
				log.Write([]byte("wake\n"))
			}()
			start := time.Now()
			nid := log.Watch(id, 5*time.Second)
			So(nid, ShouldNotEqual, id)
			So(time.Since(start), ShouldBeLessThan, 5*time.Second)
		})

		Convey("Watch gives up after expire", func() {
			So(log.Watch(id, 10*time.Millisecond), ShouldEqual, id)
			So(log.Watch(id, 0), ShouldEqual, id)
		})
	})
}
