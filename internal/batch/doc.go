// Package batch runs many track pipelines under a fixed concurrency bound.
//
// A batch moves idle -> running -> {completed | cancelled}. While running,
// the controller admits tracks in input order until the bound is reached and
// admits the next one as soon as any in-flight track finishes. Cancelling the
// context stops admission, propagates into in-flight pipelines, and waits for
// them to return, so every scratch handle is released before Run returns.
// Tracks that were never admitted are reported as cancelled failures. One
// track's failure never fails the batch.
package batch
