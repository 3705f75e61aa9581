package diag

import (
	"tarn/internal/source"
)

// Note is a secondary location attached to a diagnostic. Variance errors use
// notes to render the witness trail, innermost cause first.
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit is one concrete text replacement.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggested correction, e.g. dropping a variance marker.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Diagnostic is the central record produced by the checker and the loaders.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}
