package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/teams-presence-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	// presenceClass maps a status to a CSS class.
	"presenceClass": func(s string) string {
		switch s {
		case "Available":
			return "available"
		case "Busy", "DoNotDisturb":
			return "busy"
		case "Away", "BeRightBack":
			return "away"
		case "Offline":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Teams Presence</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.available { color: green; font-weight: bold; }
.busy { color: #c00; font-weight: bold; }
.away { color: #c90; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Teams Presence</h1>

<h2>State</h2>
<table>
<tr><th>Status</th><td id="status" class="{{presenceClass (printf "%s" .State.Status)}}">{{.State.Status}}</td></tr>
<tr><th>Activity</th><td id="activity">{{.State.Activity}}</td></tr>
<tr><th>Seen</th><td>{{if .Set}}yes{{else}}no{{end}}</td></tr>
<tr><th>Last change</th><td>{{stamp .LastChange}}</td></tr>
</table>

<h2>Log</h2>
<table>
<tr><th>Source</th><td>{{.Config.LogSource}}</td></tr>
<tr><th>File</th><td>{{.Tail.Path}}</td></tr>
<tr><th>Offset</th><td>{{.Tail.Offset}}</td></tr>
<tr><th>Resets</th><td>{{.Tail.Resets}}</td></tr>
{{if .Tail.Error}}<tr><th>Error</th><td class="disconnected">{{.Tail.Error}}</td></tr>{{end}}
</table>

<h2>Publishing</h2>
<table>
<tr><th>Home Assistant</th><td>{{.Config.HomeAssistant}}</td></tr>
<tr><th>Entity</th><td>{{.Config.StatusEntity}}</td></tr>
<tr><th>Last publish</th><td>{{stamp .Publish.At}}</td></tr>
<tr><th>Failures</th><td>{{.Publish.Failures}}</td></tr>
{{if .Publish.LastError}}<tr><th>Last error</th><td class="disconnected">{{.Publish.LastError}}</td></tr>{{end}}
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>{{end}}
</table>

<h2>Changes</h2>
<table>
<tr><th>Total</th><td>{{.Counts.Changes}}</td></tr>
<tr><th>Status</th><td>{{.Counts.StatusChanges}}</td></tr>
<tr><th>Activity</th><td>{{.Counts.ActivityChanges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{stamp .StartTime}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollInterval}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.Heartbeat 0}}disabled{{else}}{{.Config.Heartbeat}}{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
