// Package diag defines the diagnostic model shared by every generation stage.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for findings produced while
//     loading a kernel configuration, reading prototypes, normalising types,
//     annotating arguments and expanding variants.
//   - Offer light-weight utilities (Reporter, Bag) that let stages emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag performs no IO and no colouring. Rendering lives in
// internal/diagfmt; orchestration lives in internal/driver.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – numeric identifier with a stable stage prefix (codes.go):
//     CFG for the config loader, PRO for the prototype reader, TYP for the
//     type normalizer, ANN for the argument annotator, VAR for the variant
//     expander and GEN for the driver.
//   - Message – short, actionable text.
//   - Primary – the source.Span of the offending option in the config file.
//   - Notes – optional secondary spans/messages.
//
// Recoverable problems (a malformed prototype, a dropped dimension entry, a
// kernel without signatures) are diagnostics. Fatal problems are Go errors
// returned by the stage; the driver never turns an error into a warning.
//
// # Emitting diagnostics
//
// Stages use a Reporter. ReportWarning / ReportError build a ReportBuilder,
// WithNote attaches context, Emit hands the record to the reporter exactly once.
// BagReporter collects into a Bag, which supports sorting, filtering by
// severity and deduplication; DedupReporter drops repeats before they
// reach the bag.
package diag
