// Package pipeline drives a single track from request to outcome.
//
// AcquireAndTranscode walks the per-track state machine
//
//	pending -> resolving -> {redirecting | transcoding} -> {complete | failed}
//
// and never returns an error: every failure is folded into the returned
// model.Outcome together with the acquisition attempt log. Retry sub-states
// inside resolving and transcoding are not surfaced as transitions.
//
// Each call owns its buffers and scratch handles. Raw acquisition bytes are
// dropped as soon as the transcoder has consumed them.
package pipeline
