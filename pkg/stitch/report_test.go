package stitch

import (
	"strings"
	"testing"

	"github.com/abworrall/panostitch/pkg/emath"
)

func TestReportSummarize(t *testing.T) {
	r := NewReport()
	r.Add(StepReport{Index: 1, Estimate: Estimate{Outcome: Found, Transform: emath.NewTranslation(-100, 0)}, Shift: -100, Overlap: 70, Gamma: 1.0})
	r.Add(StepReport{Index: 2, Estimate: Estimate{Outcome: Degenerate}, Overlap: 100, Gamma: 1.0})
	r.Add(StepReport{Index: 3, Estimate: Estimate{Outcome: Found, Transform: emath.NewTranslation(-200, 0)}, Shift: -200, Overlap: 140, Gamma: 0.9})
	r.Summarize()

	if got := r.Shifts(); len(got) != 2 || got[0] != -100 || got[1] != -200 {
		t.Fatalf("shifts %v", got)
	}
	if r.TotalShift != -300 || r.AverageShift != -150 {
		t.Fatalf("total %f avg %f", r.TotalShift, r.AverageShift)
	}

	str := r.String()
	for _, want := range []string{"3 steps", "overlap", "gamma", "matches", "degenerate"} {
		if !strings.Contains(str, want) {
			t.Fatalf("report is missing %q:\n%s", want, str)
		}
	}
}

func TestReportEmpty(t *testing.T) {
	r := NewReport()
	r.Summarize()
	if r.AverageShift != 0 {
		t.Fatalf("avg %f", r.AverageShift)
	}
	if !strings.Contains(r.String(), "no data") {
		t.Fatalf("unexpected: %s", r.String())
	}
}
