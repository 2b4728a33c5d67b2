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
	"html/template"
)

type pageData struct {
	Hostname string
	IP       string
	Logs     []string
	Status   relaunchStatus
}

type relaunchStatus struct {
	State  string
	Reason string
	Starts int
	Pid    int
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Hostname}} status</title>
<style>
body { font-family: sans-serif; margin: 2em; }
pre { background: #111; color: #ddd; padding: 1em; overflow-x: auto; }
</style>
</head>
<body>
<h1>{{.Hostname}}</h1>
<p>Public IP: <b>{{.IP}}</b></p>
<p>Child: {{.Status.State}}{{if .Status.Pid}} (pid {{.Status.Pid}}){{end}}, {{.Status.Starts}} start(s). {{.Status.Reason}}</p>
<h2>Log</h2>
<pre>{{range .Logs}}{{.}}
{{end}}</pre>
</body>
</html>
`))
