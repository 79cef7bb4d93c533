package stitch

import (
	"fmt"
	"math"
	"strings"

	"github.com/codahale/hdrhistogram"
	"gonum.org/v1/gonum/stat"
)

// A StepReport records what happened when one more image was added.
type StepReport struct {
	Index               int // Which image (0-based) was added
	Matches             int
	HomographyAttempted bool
	Estimate
	Overlap int
	Gamma   float64
	Shift   float64 // Only meaningful if Estimate.OK()

	SeamError float64 // See DiffSeam; measured after gamma correction
}

func (sr StepReport) String() string {
	return fmt.Sprintf("step %2d: %4d matches, %s, overlap %d, gamma %.3f, seam err %.1f", sr.Index, sr.Matches, sr.Estimate, sr.Overlap, sr.Gamma, sr.SeamError)
}

// A Report is the diagnostic trail of a whole run.
type Report struct {
	Steps []StepReport

	// From the global adjustment, over the steps that found a transform.
	TotalShift   float64
	AverageShift float64
}

func NewReport() *Report { return &Report{} }

func (r *Report) Add(s StepReport) { r.Steps = append(r.Steps, s) }

// Shifts returns the shift of every step that found a transform, in order.
func (r *Report) Shifts() []float64 {
	out := []float64{}
	for _, s := range r.Steps {
		if s.OK() {
			out = append(out, s.Shift)
		}
	}
	return out
}

// Summarize fills in the aggregate shift stats.
func (r *Report) Summarize() {
	shifts := r.Shifts()
	r.TotalShift, r.AverageShift = 0, 0
	if len(shifts) == 0 {
		return
	}
	for _, s := range shifts {
		r.TotalShift += s
	}
	r.AverageShift = stat.Mean(shifts, nil)
}

func (r *Report) String() string {
	str := fmt.Sprintf("Report[%d steps, total shift %.1f, avg %.1f]\n", len(r.Steps), r.TotalShift, r.AverageShift)
	for _, s := range r.Steps {
		str += "  " + s.String() + "\n"
	}

	overlaps := hdrhistogram.New(1, 1<<20, 3)
	gammas := hdrhistogram.New(1, 10000, 3) // gamma * 1000
	matches := hdrhistogram.New(1, 1<<20, 3)
	for _, s := range r.Steps {
		overlaps.RecordValue(int64(s.Overlap))
		gammas.RecordValue(int64(math.Round(s.Gamma * 1000)))
		matches.RecordValue(int64(s.Matches))
	}
	str += "  " + histSummary("overlap", overlaps, 1) + "\n"
	str += "  " + histSummary("gamma", gammas, 1000) + "\n"
	str += "  " + histSummary("matches", matches, 1)
	return str
}

func histSummary(name string, h *hdrhistogram.Histogram, scale float64) string {
	if h.TotalCount() == 0 {
		return fmt.Sprintf("%-8s: no data", name)
	}
	parts := []string{
		fmt.Sprintf("min %.3g", float64(h.Min())/scale),
		fmt.Sprintf("p50 %.3g", float64(h.ValueAtQuantile(50))/scale),
		fmt.Sprintf("max %.3g", float64(h.Max())/scale),
		fmt.Sprintf("mean %.3g", h.Mean()/scale),
	}
	return fmt.Sprintf("%-8s: %s", name, strings.Join(parts, ", "))
}
