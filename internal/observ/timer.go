// Package observ собирает длительности фаз vet-прогона и умеет отдавать их
// человеку (Summary), машине (Report) и диагностикой уровня info.
package observ

import (
	"fmt"
	"strings"
	"time"

	"tarn/internal/diag"
	"tarn/internal/source"
)

// Phase records the duration and metadata of one run phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of run phases. Not goroutine-safe: фазы
// открывает и закрывает только драйвер.
type Timer struct {
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Track runs fn inside a named phase.
func (t *Timer) Track(name string, fn func() string) {
	idx := t.Begin(name)
	t.End(idx, fn())
}

// Summary returns a human-readable table of all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport — сжатая информация о фазе для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report формирует срез фаз и общую длительность в миллисекундах.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// Diagnostic packages the timings as an info-level diagnostic, so --timings
// travels through the ordinary rendering path.
func (t *Timer) Diagnostic() diag.Diagnostic {
	report := t.Report()
	parts := make([]string, 0, len(report.Phases)+1)
	for _, p := range report.Phases {
		parts = append(parts, fmt.Sprintf("%s %.2fms", p.Name, p.DurationMS))
	}
	parts = append(parts, fmt.Sprintf("total %.2fms", report.TotalMS))
	return diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, "timings: "+strings.Join(parts, ", "))
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
