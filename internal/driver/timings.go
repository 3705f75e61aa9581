package driver

import (
	"encoding/json"

	"tarn/internal/diag"
	"tarn/internal/observ"
	"tarn/internal/source"
)

// appendTimings packages the timer as an info diagnostic so --timings rides
// the ordinary rendering path. The machine-readable report travels in a
// note; short format drops it, json keeps it.
func appendTimings(bag *diag.Bag, timer *observ.Timer) {
	if bag == nil || timer == nil {
		return
	}
	entry := timer.Diagnostic()
	if report, err := json.Marshal(timer.Report()); err == nil {
		entry.Notes = append(entry.Notes, diag.Note{Span: source.Span{}, Msg: string(report)})
	}

	if bag.Add(entry) {
		return
	}
	// bag полон диагностиками проверки; расширяем под служебную запись
	overflow := diag.NewBag(len(bag.Items()) + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
