package observ

import (
	"strings"
	"testing"
	"time"

	"tarn/internal/diag"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("decode")
	time.Sleep(time.Millisecond)
	tm.End(idx, "2 snapshots")

	tm.Track("check", func() string { return "5 decls" })

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d", len(report.Phases))
	}
	if report.Phases[0].Name != "decode" || report.Phases[0].Note != "2 snapshots" {
		t.Fatalf("phase[0] = %+v", report.Phases[0])
	}
	if report.Phases[0].DurationMS <= 0 {
		t.Fatalf("decode duration must be positive")
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Fatalf("total %v < phase %v", report.TotalMS, report.Phases[0].DurationMS)
	}
}

func TestTimerEndOutOfRange(t *testing.T) {
	tm := NewTimer()
	tm.End(-1, "x")
	tm.End(5, "x")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("no phases expected")
	}
}

func TestSummaryAndDiagnostic(t *testing.T) {
	tm := NewTimer()
	tm.Track("decode", func() string { return "" })
	tm.Track("check", func() string { return "" })

	sum := tm.Summary()
	if !strings.Contains(sum, "decode") || !strings.Contains(sum, "total") {
		t.Fatalf("summary = %q", sum)
	}

	d := tm.Diagnostic()
	if d.Severity != diag.SevInfo || d.Code != diag.ObsTimings {
		t.Fatalf("diagnostic = %+v", d)
	}
	if !strings.HasPrefix(d.Message, "timings: ") || !strings.Contains(d.Message, "check") {
		t.Fatalf("message = %q", d.Message)
	}
}
