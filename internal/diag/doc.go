// Package diag defines the diagnostic model shared by the variance checker
// and the snapshot/project loaders.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing to the issue.
//   - Notes – optional secondary spans/messages. Variance errors render their
//     witness trail through notes, one note per witness, innermost cause first.
//   - Fixes – optional structured edits (e.g. "drop the `+` marker").
//
// Notes should add new context (“declared covariant here”) rather than repeat
// the diagnostic message.
//
// # Emitting diagnostics
//
// Producers use a diag.Reporter to decouple emission from storage: construct a
// ReportBuilder via ReportError/ReportWarning/ReportInfo, chain WithNote /
// WithFix, then Emit. BagReporter aggregates into a Bag, which supports
// sorting, deduplication and merging; DedupReporter suppresses duplicates at
// the source when shared type nodes make repeats possible.
//
// Package diag performs no formatting or IO. Rendering lives in
// internal/diagfmt; collection order and limits are driver concerns.
package diag
