package diagfmt

import (
	"fmt"
	"io"

	"tarn/internal/diag"
	"tarn/internal/source"
)

// Short prints one line per diagnostic in the golden-file format. Used by
// `tarn vet --format short` and by tests comparing against expectations.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, withNotes bool) {
	if bag == nil {
		return
	}
	out := diag.FormatGoldenDiagnostics(bag.Items(), fs, withNotes)
	if out != "" {
		fmt.Fprintln(w, out)
	}
}
