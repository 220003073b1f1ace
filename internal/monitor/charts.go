package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fusion-imaging/sitsi/internal/runstore"
)

// handleProfileChart renders the reconstructed radial density profile of a
// completed run as an interactive line chart (HTML). Query params:
//   - run (required): the run ID to plot
func (s *Server) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.completedRun(w, r)
	if !ok {
		return
	}

	data := make([]opts.LineData, 0, len(run.Solution))
	for _, v := range run.Solution {
		data = append(data, opts.LineData{Value: v})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Radial Profile", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Reconstructed Radial Profile",
			Subtitle: fmt.Sprintf("run=%s method=%s alpha=%.3g", run.RunID, run.Method, run.Alpha),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "radial index"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "density (a.u.)"}),
	)
	line.SetXAxis(indexLabels(len(data)))
	line.AddSeries("density", data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	renderChart(w, line, s)
}

// handleFitChart overlays the measured data with the synthetic vector
// reproduced from the solution, so the quality of the fit can be eyeballed
// per run.
func (s *Server) handleFitChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.completedRun(w, r)
	if !ok {
		return
	}
	if len(run.Synthetic) == 0 {
		s.writeJSONError(w, http.StatusConflict, "run has no synthetic data")
		return
	}

	synthetic := make([]opts.LineData, 0, len(run.Synthetic))
	for _, v := range run.Synthetic {
		synthetic = append(synthetic, opts.LineData{Value: v})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Synthetic Fit", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Measured vs Synthetic",
			Subtitle: fmt.Sprintf("run=%s fitness=%.3g", run.RunID, run.Fitness),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "measurement index"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "intensity (a.u.)"}),
	)
	line.SetXAxis(indexLabels(len(synthetic)))
	if len(run.Measured) > 0 {
		measured := make([]opts.LineData, 0, len(run.Measured))
		for _, v := range run.Measured {
			measured = append(measured, opts.LineData{Value: v})
		}
		line.AddSeries("measured", measured)
	}
	line.AddSeries("synthetic", synthetic)

	renderChart(w, line, s)
}

// handleRunsChart renders a scatter of fitness against regularisation
// strength across recent completed runs. Query params:
//   - limit (optional; default 50): number of recent runs to include
func (s *Server) handleRunsChart(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pts := make([]opts.ScatterData, 0, len(runs))
	for _, run := range runs {
		if run.Status != runstore.StatusComplete {
			continue
		}
		pts = append(pts, opts.ScatterData{
			Name:  run.RunID,
			Value: []interface{}{run.Alpha, run.Fitness},
		})
	}
	if len(pts) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no completed runs")
		return
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Inversion Runs", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fitness vs Regularisation",
			Subtitle: fmt.Sprintf("runs=%d", len(pts)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "alpha", Type: "log"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "fitness"}),
	)
	scatter.AddSeries("runs", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	renderChart(w, scatter, s)
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func renderChart(w http.ResponseWriter, c chartRenderer, s *Server) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func indexLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}
