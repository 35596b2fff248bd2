// Package services defines shared utilities consumed by the pipeline stages and
// the AI backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, item IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that let callers tell
//     configuration failures (fatal, never retried) from transient ones.
//   - Remediation annotations carried on errors so the CLI can print
//     actionable next steps when a run aborts.
//
// Use these helpers when wiring new backends so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
