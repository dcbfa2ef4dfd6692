// Package acquire obtains raw audio for a track through an ordered chain of
// strategies.
//
// Three strategies exist, each a self-contained way of satisfying one
// request at one quality tier:
//
//   - Library queries the platform's player manifest with
//     github.com/kkdai/youtube/v2, picks the highest-bitrate audio-only
//     representation, and downloads it over HTTP.
//   - Binary runs the yt-dlp command-line extractor into a scratch path and
//     accepts the result only when the process exits zero and the output
//     file exists with a non-zero size.
//   - Redirect probes hosted converters and, when one answers, returns a
//     redirect target instead of bytes.
//
// Chain walks the strategies strictly in order. Each strategy is retried
// with exponential backoff for transient failures, and is tried at the
// requested tier and then once at the lowest tier when it reports that the
// requested quality is not available. Every attempt is recorded in the
// returned attempt log and emitted as an acquire_attempt log event.
package acquire
