package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"trackpull/internal/model"
	"trackpull/internal/quality"
	"trackpull/internal/services"
)

const defaultMaxAudioBytes = 512 << 20

type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Library fetches audio directly from the platform's stream manifest.
type Library struct {
	client   videoClient
	maxBytes int64
}

// NewLibrary returns a Library strategy whose HTTP requests time out after timeout.
func NewLibrary(timeout time.Duration) *Library {
	return &Library{
		client:   &youtube.Client{HTTPClient: &http.Client{Timeout: timeout}},
		maxBytes: defaultMaxAudioBytes,
	}
}

func (l *Library) Name() model.StrategyName { return model.StrategyLibrary }

func (l *Library) Acquire(ctx context.Context, req model.TrackRequest, tier quality.Tier) (Fetched, error) {
	video, err := l.client.GetVideoContext(ctx, req.ID)
	if err != nil {
		return Fetched{}, classifyLibraryError(ctx, "lookup", err)
	}

	format, err := selectAudioFormat(video.Formats, tier)
	if err != nil {
		return Fetched{}, err
	}

	data, err := l.download(ctx, video, format)
	if err != nil {
		return Fetched{}, err
	}

	return Fetched{Result: &model.AcquisitionResult{
		Raw:       data,
		Container: containerForMime(format.MimeType),
		Strategy:  model.StrategyLibrary,
		Tier:      tier,
	}}, nil
}

func (l *Library) download(ctx context.Context, video *youtube.Video, format *youtube.Format) ([]byte, error) {
	data, size, err := l.fetch(ctx, video, format)
	if err != nil && isUnexpectedStatus(err, http.StatusForbidden) {
		// Chunked range requests are sometimes refused; a single request is not.
		single := *format
		single.ContentLength = 0
		data, size, err = l.fetch(ctx, video, &single)
	}
	if err != nil {
		return nil, classifyLibraryError(ctx, "fetch", err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrEmptyOutput, "library", "fetch", "stream returned no bytes", nil)
	}
	if size > 0 && int64(len(data)) < size {
		return nil, services.Wrap(services.ErrNetwork, "library", "fetch",
			fmt.Sprintf("stream truncated at %d of %d bytes", len(data), size), nil)
	}
	return data, nil
}

func (l *Library) fetch(ctx context.Context, video *youtube.Video, format *youtube.Format) ([]byte, int64, error) {
	stream, size, err := l.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	limit := l.maxBytes
	if limit <= 0 {
		limit = defaultMaxAudioBytes
	}
	data, err := io.ReadAll(io.LimitReader(stream, limit+1))
	if err != nil {
		return nil, size, err
	}
	if int64(len(data)) > limit {
		return nil, size, services.Wrap(services.ErrQualityUnavailable, "library", "fetch",
			fmt.Sprintf("audio stream exceeds the %d byte size limit", limit), nil)
	}
	return data, size, nil
}

// selectAudioFormat picks the highest-bitrate audio-only representation and
// checks it against the tier floor.
func selectAudioFormat(formats youtube.FormatList, tier quality.Tier) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 {
			continue
		}
		if best == nil || bitrateForFormat(f) > bitrateForFormat(best) {
			best = f
		}
	}
	if best == nil {
		return nil, services.Wrap(services.ErrSourceNotFound, "library", "select", "no audio-only representation", nil)
	}
	if !tier.Accepts(bitrateForFormat(best)) {
		return nil, services.Wrap(services.ErrQualityUnavailable, "library", "select",
			fmt.Sprintf("best audio is %d kbps, %s needs %d kbps", bitrateForFormat(best)/1000, tier, tier.MinBitrateKbps()), nil)
	}
	return best, nil
}

func bitrateForFormat(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return 0
}

func containerForMime(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	switch strings.TrimSpace(strings.ToLower(mime)) {
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	}
	if _, sub, ok := strings.Cut(mime, "/"); ok && sub != "" {
		return sub
	}
	return "bin"
}

func isUnexpectedStatus(err error, code int) bool {
	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		return int(statusErr) == code
	}
	return false
}

func classifyLibraryError(ctx context.Context, operation string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, services.ErrSourceNotFound):
		return err
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return services.Wrap(services.ErrSourceNotFound, "library", operation, "restricted content", err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return services.Wrap(services.ErrSourceNotFound, "library", operation, "invalid track identifier", err)
	}
	var playErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &playErr) {
		return services.Wrap(services.ErrSourceNotFound, "library", operation, "not playable", err)
	}
	if isUnexpectedStatus(err, http.StatusNotFound) || isUnexpectedStatus(err, http.StatusGone) {
		return services.Wrap(services.ErrSourceNotFound, "library", operation, "stream gone", err)
	}
	return services.Wrap(services.ErrNetwork, "library", operation, "", err)
}
