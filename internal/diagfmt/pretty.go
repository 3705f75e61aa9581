package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"tarn/internal/diag"
	"tarn/internal/source"
)

const tabStop = 4

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <sev>[<CODE>]: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes в том же
// формате. Выдержки появляются только когда содержимое файла подключено;
// снапшот без исходников даёт байтовое смещение вместо строки и колонки.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	p := newPrinter(w, fs, opts)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		p.diagnostic(&d)
	}
}

type printer struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
	pal  palette
}

// palette keeps one Sprint-style function per role so the rendering code
// never branches on opts.Color.
type palette struct {
	err  func(a ...interface{}) string
	warn func(a ...interface{}) string
	info func(a ...interface{}) string
	bold func(a ...interface{}) string
	dim  func(a ...interface{}) string
	note func(a ...interface{}) string
	fix  func(a ...interface{}) string
}

func newPrinter(w io.Writer, fs *source.FileSet, opts PrettyOpts) *printer {
	plain := fmt.Sprint
	pal := palette{
		err: plain, warn: plain, info: plain,
		bold: plain, dim: plain, note: plain, fix: plain,
	}
	if opts.Color {
		pal = palette{
			err:  color.New(color.FgRed, color.Bold).Sprint,
			warn: color.New(color.FgYellow, color.Bold).Sprint,
			info: color.New(color.FgCyan, color.Bold).Sprint,
			bold: color.New(color.Bold).Sprint,
			dim:  color.New(color.Faint).Sprint,
			note: color.New(color.FgCyan).Sprint,
			fix:  color.New(color.FgGreen).Sprint,
		}
	}
	return &printer{w: w, fs: fs, opts: opts, pal: pal}
}

func (p *printer) diagnostic(d *diag.Diagnostic) {
	head := fmt.Sprintf("%s[%s]", d.Severity.Label(), d.Code.ID())
	switch d.Severity {
	case diag.SevError:
		head = p.pal.err(head)
	case diag.SevWarning:
		head = p.pal.warn(head)
	default:
		head = p.pal.info(head)
	}
	fmt.Fprintf(p.w, "%s: %s: %s\n", p.location(d.Primary), head, p.pal.bold(d.Message))
	p.excerpt(d.Primary, int(p.opts.Context))

	if p.opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(p.w, "%s: %s: %s\n", p.location(n.Span), p.pal.note("note"), n.Msg)
			p.excerpt(n.Span, 0)
		}
	}
	if p.opts.ShowFixes {
		for _, fix := range d.Fixes {
			fmt.Fprintf(p.w, "%s: %s\n", p.pal.fix("help"), fix.Title)
			for _, edit := range fix.Edits {
				fmt.Fprintf(p.w, "  %s -> `%s`\n", p.location(edit.Span), edit.NewText)
			}
		}
	}
}

// location renders "path:line:col", falling back to "path:@offset" when the
// file content is not attached and to "<unknown>" for fileless spans.
func (p *printer) location(span source.Span) string {
	f := p.fs.Get(span.File)
	if f == nil {
		return "<unknown>"
	}
	path := f.FormatPath(p.opts.PathMode.formatMode(), p.fs.BaseDir())
	if start, _, ok := p.fs.Resolve(span); ok {
		return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
	}
	return fmt.Sprintf("%s:@%d", path, span.Start)
}

// excerpt prints up to context lines before the span's line, the line
// itself and the caret underline. Tabs are expanded and widths measured in
// display cells, so the carets line up under wide runes too.
func (p *printer) excerpt(span source.Span, context int) {
	f := p.fs.Get(span.File)
	if f == nil || !f.HasContent() {
		return
	}
	start, end, ok := p.fs.Resolve(span)
	if !ok {
		return
	}

	first := start.Line
	if context > 0 && first > uint32(context) {
		first -= uint32(context)
	} else if context > 0 {
		first = 1
	}
	gutter := len(strconv.FormatUint(uint64(start.Line), 10))

	for ln := first; ln < start.Line; ln++ {
		p.contextLine(f, ln, gutter)
	}

	line := norm.NFC.String(f.GetLine(start.Line))
	fmt.Fprintf(p.w, " %*d | %s\n", gutter, start.Line, expandTabs(line))

	// колонки байтовые, ширина - в клетках терминала
	prefix := sliceLineBytes(line, start.Col-1)
	pad := runewidth.StringWidth(expandTabs(prefix))
	carets := caretWidth(line, start, end)
	underline := "^"
	if carets > 1 {
		underline += strings.Repeat("~", carets-1)
	}
	marker := p.pal.err(underline)
	fmt.Fprintf(p.w, " %*s | %s%s\n", gutter, "", strings.Repeat(" ", pad), marker)
}

func (p *printer) contextLine(f *source.File, ln uint32, gutter int) {
	text := expandTabs(norm.NFC.String(f.GetLine(ln)))
	fmt.Fprintf(p.w, " %*d | %s\n", gutter, ln, p.pal.dim(text))
}

// caretWidth measures the underlined region in display cells, clamped to
// the first line of the span. Empty spans still get one caret.
func caretWidth(line string, start, end source.LineCol) int {
	from := start.Col - 1
	to := end.Col - 1
	if end.Line != start.Line {
		to = uint32(len(line))
	}
	if to <= from {
		return 1
	}
	seg := sliceLineBytes(line, to)
	if uint32(len(seg)) > from {
		seg = seg[from:]
	} else {
		seg = ""
	}
	w := runewidth.StringWidth(expandTabs(seg))
	if w < 1 {
		w = 1
	}
	return w
}

// sliceLineBytes returns the prefix of the line up to the byte offset,
// clamped to the line length.
func sliceLineBytes(line string, n uint32) string {
	if n > uint32(len(line)) {
		return line
	}
	return line[:n]
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabStop))
}
