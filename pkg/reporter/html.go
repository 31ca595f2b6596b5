package reporter

import (
	"fmt"
	"html/template"
	"io"
)

const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #37474f 0%, #263238 100%);
            color: white;
            padding: 40px;
        }
        .header h1 {
            font-size: 2.2em;
            margin-bottom: 10px;
        }
        .header .meta {
            opacity: 0.9;
        }
        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(240px, 1fr));
            gap: 25px;
            padding: 40px;
            background: linear-gradient(to bottom, #f8f9fa 0%, #fff 100%);
        }
        .summary-card {
            background: white;
            padding: 25px;
            border-radius: 12px;
            border: 2px solid #e8eaed;
            box-shadow: 0 4px 12px rgba(0, 0, 0, 0.05);
        }
        .summary-card h3 {
            color: #5f6368;
            font-size: 0.85em;
            text-transform: uppercase;
            letter-spacing: 1.5px;
            margin-bottom: 15px;
        }
        .summary-card .value {
            font-size: 2.6em;
            font-weight: 700;
            line-height: 1;
        }
        .summary-card.uptime {
            border-left: 6px solid #34a853;
        }
        .summary-card.uptime .value {
            color: #34a853;
        }
        .summary-card.downtime {
            border-left: 6px solid #d93025;
        }
        .summary-card.downtime .value {
            color: #d93025;
        }
        .summary-card.runs {
            border-left: 6px solid #326ce5;
        }
        .summary-card.runs .value {
            color: #326ce5;
        }
        .section {
            padding: 40px;
        }
        .section:nth-child(even) {
            background: #fafbfc;
        }
        .section h2 {
            font-size: 1.6em;
            margin-bottom: 25px;
            color: #202124;
        }
        .chart {
            display: flex;
            align-items: flex-end;
            gap: 60px;
            height: 260px;
            padding: 0 40px;
            border-bottom: 2px solid #dadce0;
        }
        .bar {
            width: 120px;
            border-radius: 6px 6px 0 0;
            position: relative;
        }
        .bar.uptime {
            background: #34a853;
        }
        .bar.downtime {
            background: #d93025;
        }
        .bar span {
            position: absolute;
            top: -26px;
            width: 100%;
            text-align: center;
            font-weight: 700;
        }
        .chart-labels {
            display: flex;
            gap: 60px;
            padding: 8px 40px 0;
        }
        .chart-labels div {
            width: 120px;
            text-align: center;
            color: #5f6368;
        }
        .runs-table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        .runs-table th {
            background: #37474f;
            color: white;
            padding: 12px;
            text-align: right;
            font-weight: 600;
        }
        .runs-table th:first-child, .runs-table td:first-child {
            text-align: left;
        }
        .runs-table td {
            padding: 10px 12px;
            border-bottom: 1px solid #f0f2f4;
            text-align: right;
        }
        .runs-table tfoot td {
            font-weight: 700;
        }
        .trend {
            margin-top: 20px;
            color: #5f6368;
        }
        .stat-row {
            display: flex;
            justify-content: space-between;
            max-width: 480px;
            padding: 8px 0;
            border-bottom: 1px solid #f0f2f4;
        }
        .stat-label {
            color: #5f6368;
        }
        .stat-value {
            font-weight: 700;
        }
        .footer {
            background: #202124;
            color: #9aa0a6;
            padding: 30px;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
            <div class="meta">
                <p><strong>Source:</strong> {{.Source}} | <strong>Generated:</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}</p>
            </div>
        </div>

        <div class="summary">
            <div class="summary-card uptime">
                <h3>Uptime</h3>
                <div class="value">{{pct .UptimePercentage}}</div>
            </div>
            <div class="summary-card downtime">
                <h3>Downtime</h3>
                <div class="value">{{pct .DowntimePercentage}}</div>
            </div>
            <div class="summary-card runs">
                <h3>Program Runs</h3>
                <div class="value">{{.TotalRuns}}</div>
            </div>
        </div>

        <div class="section">
            <h2>Uptime vs Downtime (minutes)</h2>
            <div class="chart">
                <div class="bar uptime" style="height: {{bar .UptimeBar}}"><span>{{minutes .UptimeMinutes}}</span></div>
                <div class="bar downtime" style="height: {{bar .DowntimeBar}}"><span>{{minutes .DowntimeMinutes}}</span></div>
            </div>
            <div class="chart-labels">
                <div>Uptime</div>
                <div>Downtime</div>
            </div>
        </div>

        <div class="section">
            <h2>Program Runs per Day</h2>
            {{if .Rows}}
            <table class="runs-table">
                <thead>
                    <tr>
                        <th>Program</th>
                        {{range .Dates}}<th>{{.}}</th>{{end}}
                        <th>Total</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Rows}}
                    <tr>
                        <td><strong>{{.Program}}</strong></td>
                        {{range .Counts}}<td>{{.}}</td>{{end}}
                        <td>{{.Total}}</td>
                    </tr>
                    {{end}}
                </tbody>
                <tfoot>
                    <tr>
                        <td>Total</td>
                        {{range .DateTotals}}<td>{{.}}</td>{{end}}
                        <td>{{.TotalRuns}}</td>
                    </tr>
                </tfoot>
            </table>
            {{else}}
            <p>No samples in this window.</p>
            {{end}}
        </div>

        {{if .Daily}}
        <div class="section">
            <h2>Daily Uptime</h2>
            <table class="runs-table">
                <thead>
                    <tr>
                        <th>Date</th>
                        <th>Uptime</th>
                        <th>Downtime</th>
                        <th>Uptime %</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Daily}}
                    <tr>
                        <td>{{.Date}}</td>
                        <td>{{minutes .UptimeMinutes}}</td>
                        <td>{{minutes .DowntimeMinutes}}</td>
                        <td>{{pct .UptimePercentage}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            {{with .Trend}}
            <p class="trend">Trend over {{.Days}} days: <strong>{{.Direction}}</strong> ({{printf "%+.2f" .SlopePerDay}} points/day, R² {{printf "%.2f" .RSquared}})</p>
            {{end}}
        </div>
        {{end}}

        <div class="section">
            <h2>Data Quality</h2>
            <div class="stat-row"><span class="stat-label">Samples</span><span class="stat-value">{{.Quality.Samples}}</span></div>
            <div class="stat-row"><span class="stat-label">Without program name</span><span class="stat-value">{{.Quality.UnknownProgramSamples}}</span></div>
            <div class="stat-row"><span class="stat-label">Dropped</span><span class="stat-value">{{.Quality.DroppedSamples}}</span></div>
            <div class="stat-row"><span class="stat-label">Signal outside 0/1</span><span class="stat-value">{{.Quality.OutOfDomainSignals}}</span></div>
            <div class="stat-row"><span class="stat-label">Negative cycle durations</span><span class="stat-value">{{.Quality.NegativeCycleDuration}}</span></div>
            <div class="stat-row"><span class="stat-label">Non-finite cycle durations</span><span class="stat-value">{{.Quality.NonFiniteCycleDuration}}</span></div>
            <div class="stat-row"><span class="stat-label">Reordered</span><span class="stat-value">{{.Quality.Reordered}}</span></div>
            {{with .CycleStats}}
            <div class="stat-row"><span class="stat-label">Cycles</span><span class="stat-value">{{.Count}}</span></div>
            <div class="stat-row"><span class="stat-label">Average cycle</span><span class="stat-value">{{minutes .Average}}</span></div>
            <div class="stat-row"><span class="stat-label">P95 cycle</span><span class="stat-value">{{minutes .P95}}</span></div>
            <div class="stat-row"><span class="stat-label">Longest cycle</span><span class="stat-value">{{minutes .Max}}</span></div>
            {{end}}
        </div>

        <div class="footer">
            <p>Generated by <strong>cnc-uptime-analyzer</strong>{{if .ID}} | {{.ID}}{{end}}</p>
        </div>
    </div>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":     func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"minutes": func(v float64) string { return fmt.Sprintf("%.2f min", v) },
	"bar":     func(v float64) template.CSS { return template.CSS(fmt.Sprintf("%.1f%%", v)) },
}).Parse(htmlTemplate))

// GenerateHTML creates an HTML report
func GenerateHTML(report *Report, writer io.Writer) error {
	if err := reportTemplate.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
