package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"tarn/internal/source"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32 // 0 when the file content is not attached
	Col      uint32 // byte offset when Line == 0
	Message  string
}

// FormatGoldenDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation suitable for golden files and CLI short output. Entries are
// sorted deterministically and returned as a single string (empty when there
// are no diagnostics).
func FormatGoldenDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]goldenDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendDiagnostic(rendered, &diags[i], fs, includeNotes)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Col != dj.Col {
			return di.Col < dj.Col
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		if d.Line > 0 {
			fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Col, d.Message)
		} else {
			// содержимое файла не подключено: остаётся байтовое смещение
			fmt.Fprintf(&b, "%s %s %s:@%d %s", d.Severity, d.Code, d.Path, d.Col, d.Message)
		}
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendDiagnostic(out []goldenDiagnostic, d *Diagnostic, fs *source.FileSet, includeNotes bool) []goldenDiagnostic {
	g := locate(fs, d.Primary)
	g.Severity = d.Severity.Label()
	g.Code = d.Code.ID()
	g.Message = sanitizeMessage(d.Message)
	out = append(out, g)

	if includeNotes {
		for _, note := range d.Notes {
			n := locate(fs, note.Span)
			n.Severity = "note"
			n.Code = d.Code.ID()
			n.Message = sanitizeMessage(note.Msg)
			out = append(out, n)
		}
	}

	return out
}

func locate(fs *source.FileSet, span source.Span) goldenDiagnostic {
	file := fs.Get(span.File)
	if file == nil {
		return goldenDiagnostic{Path: "<unknown>", Col: span.Start}
	}
	path := normalizeGoldenPath(file.FormatPath("relative", fs.BaseDir()))
	if start, _, ok := fs.Resolve(span); ok {
		return goldenDiagnostic{Path: path, Line: start.Line, Col: start.Col}
	}
	return goldenDiagnostic{Path: path, Col: span.Start}
}

func normalizeGoldenPath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
