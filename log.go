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
	"strings"
	"sync"
	"time"
)

// MaxLogRecords is the default capacity of a Log.
const MaxLogRecords = 1000

type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log keeps the most recent lines written to it in a ring.  It is one of
// the Logger's destinations, and serves the log API, where its ID is
// used as an Etag.
type Log struct {
	records    []LogRecord
	numRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

func (log *Log) lock() {
	log.mx.Lock()
}

func (log *Log) unlock() {
	log.mx.Unlock()
}

// Write implements io.Writer.  Each newline terminated line becomes a
// record.
func (log *Log) Write(b []byte) (int, error) {
	str := strings.TrimRight(string(b), "\n")
	now := time.Now()
	log.lock()
	for _, line := range strings.Split(str, "\n") {
		rec := &log.records[log.numRecords%len(log.records)]
		log.id++
		rec.Id = log.id
		rec.Time = now
		rec.Text = line
		// numRecords keeps counting past capacity; it also tells
		// us where the next record goes.
		log.numRecords++
	}
	for cv := range log.cvs {
		cv.Broadcast()
	}
	log.unlock()
	return len(b), nil
}

// Clear discards all records.
func (log *Log) Clear() {
	log.lock()
	log.numRecords = 0
	// Records cannot be added faster than once a nanosecond, so this
	// cannot collide with an ID handed out before.
	log.id = time.Now().UnixNano()
	for cv := range log.cvs {
		cv.Broadcast()
	}
	log.unlock()
}

// GetRecords returns the stored records, oldest first, and the current
// ID.  If last matches the current ID nothing has changed, and nil is
// returned without copying anything.
func (log *Log) GetRecords(last int64) ([]LogRecord, int64) {
	log.lock()
	defer log.unlock()
	if log.id == last {
		return nil, last
	}
	return log.tail(log.numRecords), log.id
}

// Tail returns up to n of the newest records, oldest first.
func (log *Log) Tail(n int) []LogRecord {
	log.lock()
	defer log.unlock()
	return log.tail(n)
}

// Call with lock held.
func (log *Log) tail(n int) []LogRecord {
	cnt := log.numRecords
	if cnt > len(log.records) {
		cnt = len(log.records)
	}
	if n < cnt {
		cnt = n
	}
	if cnt <= 0 {
		return []LogRecord{}
	}
	recs := make([]LogRecord, 0, cnt)
	for index := log.numRecords - cnt; index < log.numRecords; index++ {
		recs = append(recs, log.records[index%len(log.records)])
	}
	return recs
}

// Watch waits until the ID differs from last, or until expire passes,
// and returns the ID then current.  An expire of zero polls.
func (log *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&log.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			log.lock()
			expired = true
			cv.Broadcast()
			log.unlock()
		})
	} else {
		expired = true
	}

	log.lock()
	log.cvs[cv] = true
	for log.id == last && !expired {
		cv.Wait()
	}
	delete(log.cvs, cv)
	last = log.id
	log.unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewLog returns a Log holding at most max records.  A non-positive max
// selects MaxLogRecords.
func NewLog(max int) *Log {
	if max <= 0 {
		max = MaxLogRecords
	}
	return &Log{
		records: make([]LogRecord, max),
		id:      time.Now().UnixNano(),
		cvs:     make(map[*sync.Cond]bool),
	}
}
