package diagfmt

import (
	"encoding/json"
	"strings"
	"testing"

	"tarn/internal/diag"
	"tarn/internal/source"
)

func TestJSONIncludesPositionsAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/ws")
	fileID := fs.Add("/ws/src/sink.tarn", []byte(sampleSource), 0)

	var sb strings.Builder
	err := JSON(&sb, sampleBag(fileID), fs, JSONOpts{
		IncludePositions: true,
		PathMode:         PathModeBasename,
		IncludeNotes:     true,
		IncludeFixes:     true,
	})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, sb.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("want one diagnostic, got %d", out.Count)
	}

	d := out.Diagnostics[0]
	if d.Code != "VAR3001" || d.Severity != "ERROR" {
		t.Fatalf("unexpected head: %+v", d)
	}
	if d.Location.File != "sink.tarn" || d.Location.StartLine != 1 || d.Location.StartCol != 12 {
		t.Fatalf("unexpected location: %+v", d.Location)
	}
	if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Message, "contravariant positions") {
		t.Fatalf("unexpected notes: %+v", d.Notes)
	}
	if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 1 || d.Fixes[0].Edits[0].NewText != "T" {
		t.Fatalf("unexpected fixes: %+v", d.Fixes)
	}
}

func TestJSONWithoutContentOmitsPositions(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.Register("src/sink.tarn", [32]byte{})

	var sb strings.Builder
	if err := JSON(&sb, sampleBag(fileID), fs, JSONOpts{IncludePositions: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	loc := out.Diagnostics[0].Location
	if loc.StartLine != 0 || loc.StartCol != 0 {
		t.Fatalf("line/col must be absent without content: %+v", loc)
	}
	if loc.StartByte != 11 || loc.EndByte != 13 {
		t.Fatalf("byte offsets must survive: %+v", loc)
	}
}

func TestJSONMaxTruncatesOutputOnly(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.Add("many.tarn", []byte(sampleSource), 0)

	bag := diag.NewBag(8)
	for i := uint32(0); i < 5; i++ {
		bag.Add(diag.NewError(diag.VarDeclaredCovariant,
			source.Span{File: fileID, Start: i, End: i + 1}, "msg"))
	}

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("want 2 rendered diagnostics, got %d", out.Count)
	}
	if bag.Len() != 5 {
		t.Fatalf("Max must not touch the bag itself, got %d", bag.Len())
	}
}

func TestJSONTimingsNotesAlwaysIncluded(t *testing.T) {
	fs := source.NewFileSet()

	bag := diag.NewBag(4)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  "timings: total 1.00ms",
		Notes:    []diag.Note{{Msg: `{"total_ms":1}`}},
	})

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludeNotes: false})
	if len(out.Diagnostics) != 1 || len(out.Diagnostics[0].Notes) != 1 {
		t.Fatalf("timings notes must always be present: %+v", out.Diagnostics)
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/ws")
	fileID := fs.Add("/ws/short.tarn", []byte(sampleSource), 0)

	var sb strings.Builder
	Short(&sb, sampleBag(fileID), fs, false)
	want := "error VAR3001 short.tarn:1:12 covariant type parameter `T` occurs in a contravariant position\n"
	if sb.String() != want {
		t.Fatalf("want %q, got %q", want, sb.String())
	}

	sb.Reset()
	Short(&sb, diag.NewBag(1), fs, false)
	if sb.String() != "" {
		t.Fatalf("empty bag must print nothing, got %q", sb.String())
	}
}
