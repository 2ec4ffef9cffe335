package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/status"
	"github.com/sweeney/gate-tester/internal/tester"
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
	"outcomeClass": func(o tester.Outcome) string {
		switch o {
		case tester.OutcomePass:
			return "pass"
		case tester.OutcomeFail:
			return "fail"
		}
		return "untested"
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Gate Tester</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.pass { color: green; font-weight: bold; }
.fail { color: red; font-weight: bold; }
.untested { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Gate Tester</h1>

<h2>Selection</h2>
{{if .HasReport}}
<table>
<tr><th>Device</th><td>{{.Report.Selection.Device}}</td></tr>
<tr><th>Mode</th><td>{{.Report.Selection.Mode}}</td></tr>
<tr><th>Interrupts</th><td>{{.Interrupts}}</td></tr>
</table>

{{if .Report.SelfTest}}
<h2>Self-test</h2>
<table>
<tr><th>Observed</th><td>{{.Report.Observed}}</td></tr>
<tr><th>OR gate</th><td>{{yesno .Report.Shape.OR}}</td></tr>
<tr><th>AND gate</th><td>{{yesno .Report.Shape.AND}}</td></tr>
</table>
{{else}}
<h2>Results (expected {{.Report.Expected}})</h2>
<table>
{{range .Rows}}<tr><th>{{.Name}}</th><td class="{{outcomeClass .Outcome}}">{{.Outcome}}</td><td>{{.Observed}}</td></tr>
{{end}}</table>
{{end}}
{{else}}
<p>Waiting for first test iteration.</p>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Iterations</th><td>{{.Counts.Iterations}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Settle</th><td>{{.Config.SettleUs}}µs</td></tr>
<tr><th>Watchdog</th><td>{{if eq .Config.WatchdogMs 0}}disabled{{else}}{{.Config.WatchdogMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type resultRow struct {
	Name     string
	Outcome  tester.Outcome
	Observed string
}

func resultRows(r tester.Report) []resultRow {
	rows := []resultRow{{Name: "All channels", Outcome: r.Outcome(0)}}
	for i := 1; i <= gpio.NumChannels; i++ {
		row := resultRow{Name: fmt.Sprintf("Channel %d", i), Outcome: r.Outcome(i)}
		if r.Exercised(i) {
			row.Observed = r.Tables[i-1].String()
		}
		rows = append(rows, row)
	}
	return rows
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Rows   []resultRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Rows:     resultRows(snap.Report),
	}
	indexTmpl.Execute(w, data)
}
