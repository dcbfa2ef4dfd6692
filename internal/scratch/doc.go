// Package scratch owns the process-wide working directory for temporary
// files produced while extracting and transcoding tracks.
//
// The directory is created lazily, exactly once, on the first Acquire. Each
// Acquire reserves a path with a random component so concurrent tracks never
// collide, and the returned Handle must be released on every exit path of the
// operation that acquired it. Release is idempotent and treats already-missing
// files as success.
//
// While a Manager is in use it holds a shared flock on a lock file next to the
// directory; SweepStale takes the exclusive lock, so a sweep never deletes
// files belonging to a live process.
package scratch
