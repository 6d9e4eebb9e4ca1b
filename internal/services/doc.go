// Package services defines shared utilities consumed by the workflow stages
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the kinds the workflow surfaces to the user (unsupported format,
//     transcode failure, empty selection).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across conversion, cropping, and export.
package services
