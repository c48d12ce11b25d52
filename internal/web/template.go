package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/espresso-shot/internal/display"
	"github.com/sweeney/espresso-shot/internal/status"
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
	"temp":    display.FormatTemperature,
	"elapsed": display.FormatElapsed,
	"ohms": func(r float32) string {
		return fmt.Sprintf("%.0f Ω", r)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Espresso Shot</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Espresso Shot</h1>

<h2>Shot</h2>
<table>
<tr><th>State</th><td id="machine" class="{{if or (eq .Machine "RUNNING") (eq .Machine "START")}}on{{else}}off{{end}}">{{.Machine}}</td></tr>
<tr><th>Timer</th><td id="elapsed">{{elapsed .Device.Elapsed}}</td></tr>
<tr><th>Shot ID</th><td>{{if .Device.ShotID}}{{.Device.ShotID}}{{else}}-{{end}}</td></tr>
<tr><th>Shots</th><td>{{.Device.Shots.Started}} started, {{.Device.Shots.Finished}} finished</td></tr>
</table>

<h2>Temperatures</h2>
<table>
<tr><th>Group</th><td id="group">{{temp .Device.GroupTemperature}}</td></tr>
<tr><th>Basket</th><td id="basket">{{temp .Device.BasketTemperature}}</td></tr>
<tr><th>Target</th><td id="target">{{temp .Device.Target}} ({{.Device.TargetSource}})</td></tr>
<tr><th>Fan</th><td class="{{if .Device.Cooling}}on{{else}}off{{end}}">{{if .Device.Cooling}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Group probe</th><td>{{ohms .Device.GroupResistance}}</td></tr>
<tr><th>Basket probe</th><td>{{ohms .Device.BasketResistance}}</td></tr>
</table>

<h2>Switches</h2>
<table>
<tr><th>Lever</th><td>{{if .Device.LeverUp}}up{{else}}down{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Device.Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Telemetry</th><td>{{if .Config.TelemetryPort}}{{.Config.TelemetryPort}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sensing</th><td>{{.Config.SensingHz}} Hz, {{.Config.Capacity}} samples</td></tr>
<tr><th>Display</th><td>{{.Config.DisplayHz}} Hz</td></tr>
{{with .System}}<tr><th>Load</th><td>{{printf "%.2f %.2f %.2f" .Load1 .Load5 .Load15}}</td></tr>
<tr><th>Memory</th><td>{{printf "%.0f / %.0f MB" .MemUsedMB .MemTotalMB}}</td></tr>
<tr><th>Process</th><td>{{printf "%.1f MB" .ProcessRSSMB}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Machine string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Machine:  snap.Device.Machine.String(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.WithField("component", "web").WithError(err).Warn("render status page")
	}
}
