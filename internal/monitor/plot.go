package monitor

import (
	"fmt"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// handleProfilePNG renders the reconstructed radial profile of a completed
// run as a static PNG, suitable for embedding in reports. Query params:
//   - run (required): the run ID to plot
func (s *Server) handleProfilePNG(w http.ResponseWriter, r *http.Request) {
	run, ok := s.completedRun(w, r)
	if !ok {
		return
	}

	pts := make(plotter.XYs, 0, len(run.Solution))
	for i, v := range run.Solution {
		pts = append(pts, plotter.XY{X: float64(i), Y: v})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Radial profile (%s)", run.RunID)
	p.X.Label.Text = "radial index"
	p.Y.Label.Text = "density (a.u.)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build plot: %v", err))
		return
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// Headers are already out; nothing sensible left to do.
		return
	}
}
