package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/seat-sensor/internal/status"
)

// duration renders d as "1d 2h 3m 4s", dropping leading zero units.
func duration(d time.Duration) string {
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
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": duration,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="{{.Config.PollIntervalSeconds}}">
<title>Seat {{.Config.SeatID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.occupied { color: #b00; font-weight: bold; }
.free { color: green; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Seat {{.Config.SeatID}} <small>(channel {{.Config.WirelessChannel}})</small></h1>

<h2>Occupancy</h2>
<table>
<tr><th>Status</th><td id="occupancy" class="{{.Class}}">{{.Occupancy}}</td></tr>
<tr><th>Empty for</th><td>{{if .EmptySince.IsZero}}-{{else}}{{duration .EmptyFor}}{{end}}</td></tr>
<tr><th>Samples</th><td>{{.Samples}}</td></tr>
<tr><th>Read errors</th><td>{{.ReadErrors}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Occupied</th><td>{{.Counts.Occupied}}</td></tr>
<tr><th>Free</th><td>{{.Counts.Free}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll interval</th><td>{{.Config.PollIntervalSeconds}}s</td></tr>
<tr><th>Free timeout</th><td>{{.Config.FreeTimeoutSeconds}}s</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatSeconds 0}}disabled{{else}}{{.Config.HeartbeatSeconds}}s{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Methods on Snapshot are exposed as plain fields for the template.
	data := struct {
		status.Snapshot
		Occupancy string
		Class     string
		Uptime    time.Duration
		EmptyFor  time.Duration
	}{
		Snapshot:  snap,
		Occupancy: "UNKNOWN",
		Class:     "unknown",
		Uptime:    snap.Uptime(),
		EmptyFor:  snap.EmptyFor(),
	}
	switch snap.Status {
	case "OCCUPIED":
		data.Occupancy, data.Class = "OCCUPIED", "occupied"
	case "FREE":
		data.Occupancy, data.Class = "FREE", "free"
	}
	return indexTmpl.Execute(w, data)
}
