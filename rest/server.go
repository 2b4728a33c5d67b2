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
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gdamore/relaunch"
)

// Handler serves the status page and the JSON API for a Supervisor.
type Handler struct {
	s           *relaunch.Supervisor
	log         *relaunch.Log
	logger      *relaunch.Logger
	lookup      relaunch.IPLookup
	logFile     string
	lines       int
	placeholder string
	r           *mux.Router
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}, etag string) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		if etag != "" {
			w.Header().Set("Etag", etag)
		}
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

// pollWait reports how long the request asked to wait for etag to
// change.  Zero means the client does not want a long poll.
func pollWait(r *http.Request, etag string) time.Duration {
	if r.Header.Get(PollEtagHeader) != etag {
		return 0
	}
	secs, e := strconv.Atoi(r.Header.Get(PollTimeHeader))
	if e != nil || secs <= 0 {
		return 0
	}
	if secs > maxPollSecs {
		secs = maxPollSecs
	}
	return time.Duration(secs) * time.Second
}

func (h *Handler) statusPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host := relaunch.GetHostInfo(ctx)
	ip, e := h.lookup.PublicIP(ctx)
	if e != nil {
		h.logger.Errorf("Error fetching data: %v", e)
		http.Error(w, "Error fetching data", http.StatusInternalServerError)
		return
	}

	logs, e := relaunch.TailFile(h.logFile, h.lines)
	if errors.Is(e, fs.ErrNotExist) {
		logs = []string{h.placeholder}
	} else if e != nil {
		h.logger.Errorf("Error reading %s: %v", h.logFile, e)
		http.Error(w, "Error fetching data", http.StatusInternalServerError)
		return
	}

	st := h.s.Status()
	data := &pageData{
		Hostname: host.Hostname,
		IP:       ip,
		Logs:     logs,
		Status: relaunchStatus{
			State:  st.State.String(),
			Reason: st.Reason,
			Starts: st.Starts,
			Pid:    st.Pid,
		},
	}
	var buf bytes.Buffer
	if e := statusPage.Execute(&buf, data); e != nil {
		h.logger.Errorf("Error rendering status page: %v", e)
		h.internalError(w, e)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	st := h.s.Status()
	etag := strconv.FormatInt(st.Serial, 10)
	if r.Header.Get("If-None-Match") == etag {
		if wait := pollWait(r, etag); wait > 0 {
			h.s.Watch(st.Serial, wait)
			st = h.s.Status()
			etag = strconv.FormatInt(st.Serial, 10)
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	info := &StatusInfo{
		Status: st,
		Host:   relaunch.GetHostInfo(r.Context()),
	}
	if st.Pid != 0 {
		if u, e := relaunch.GetUsage(r.Context(), st.Pid); e == nil {
			info.Usage = u
		}
	}
	h.writeJson(w, info, etag)
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	recs, id := h.log.GetRecords(0)
	etag := strconv.FormatInt(id, 10)
	if r.Header.Get("If-None-Match") == etag {
		if wait := pollWait(r, etag); wait > 0 {
			h.log.Watch(id, wait)
			recs, id = h.log.GetRecords(0)
			etag = strconv.FormatInt(id, 10)
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	if n, e := strconv.Atoi(r.URL.Query().Get("lines")); e == nil && n >= 0 && n < len(recs) {
		recs = recs[len(recs)-n:]
	}
	h.writeJson(w, recs, etag)
}

func (h *Handler) restart(w http.ResponseWriter, r *http.Request) {
	if e := h.s.Restart(); e != nil {
		h.writeError(w, &Error{http.StatusConflict, e.Error()})
		return
	}
	h.logger.Infof("Restart requested by %s", r.RemoteAddr)
	h.writeJson(w, ok, "")
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debugf("%s %s from %s (%v)", r.Method, r.URL.Path,
			r.RemoteAddr, time.Since(start).Round(time.Millisecond))
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// NewHandler returns the HTTP surface of s.  The status page reads the
// log file named in c, and the log API serves mem, which should be one
// of logger's destinations.
func NewHandler(s *relaunch.Supervisor, c *relaunch.Config, logger *relaunch.Logger,
	mem *relaunch.Log, lookup relaunch.IPLookup) *Handler {

	r := mux.NewRouter()
	h := &Handler{
		s:           s,
		log:         mem,
		logger:      logger,
		lookup:      lookup,
		logFile:     c.Log.File,
		lines:       c.Status.Lines,
		placeholder: c.Status.Placeholder,
		r:           r,
	}
	r.Use(h.accessLog)
	r.HandleFunc("/", h.statusPage).Methods("GET")
	r.HandleFunc("/api/status", h.getStatus).Methods("GET")
	r.HandleFunc("/api/log", h.getLog).Methods("GET")
	r.HandleFunc("/api/restart", h.restart).Methods("POST")
	r.Handle("/metrics", promhttp.HandlerFor(s.Metrics().Registry(),
		promhttp.HandlerOpts{ErrorLog: logger.StdLogger(relaunch.LevelError)})).Methods("GET")
	return h
}
