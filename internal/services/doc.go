// Package services defines shared utilities consumed by the acquisition
// strategies, the transcoder, and the pipeline orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, run IDs, track identifiers,
//     strategy names, and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline error taxonomy (source not found, network, process,
//     empty output, no available source, cancelled).
//   - ProcessError, the typed failure every external tool invocation returns
//     so exit codes and stderr tails survive up to the caller.
//
// Use these helpers when wiring new strategy logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
