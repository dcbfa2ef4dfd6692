// Package transcode converts acquired audio into the delivery format with
// ffmpeg.
//
// Input bytes are staged in scratch files owned by the call; both input and
// output paths are released before Transcode returns, on success and failure
// alike. A run succeeds only when ffmpeg exits zero and leaves a non-empty
// output file; anything else is reported as a services.ProcessError whose
// marker is services.ErrTranscodeFailed, carrying the exit code and the tail
// of ffmpeg's stderr.
package transcode
