// Package manifest reads batch input files: a TOML list of tracks standing in
// for an upstream catalog lookup.
//
//	[[track]]
//	id = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
//	title = "Never Gonna Give You Up"
//	artist = "Rick Astley"
//	quality = "high"
package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"trackpull/internal/model"
	"trackpull/internal/quality"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type file struct {
	Tracks []entry `toml:"track"`
}

type entry struct {
	ID      string `toml:"id"`
	Title   string `toml:"title"`
	Artist  string `toml:"artist"`
	Quality string `toml:"quality"`
}

// Load reads the manifest at path.
func Load(path string) ([]model.TrackRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes. Every entry is validated; all problems are
// reported together.
func Parse(data []byte) ([]model.TrackRequest, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(f.Tracks) == 0 {
		return nil, errors.New("manifest lists no tracks")
	}

	reqs := make([]model.TrackRequest, 0, len(f.Tracks))
	var errs []error
	for i, e := range f.Tracks {
		req, err := e.request()
		if err != nil {
			errs = append(errs, fmt.Errorf("track %d: %w", i+1, err))
			continue
		}
		reqs = append(reqs, req)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reqs, nil
}

func (e entry) request() (model.TrackRequest, error) {
	id, err := ExtractID(e.ID)
	if err != nil {
		return model.TrackRequest{}, err
	}
	req := model.TrackRequest{
		ID:     id,
		Title:  strings.TrimSpace(e.Title),
		Artist: strings.TrimSpace(e.Artist),
	}
	if q := strings.TrimSpace(e.Quality); q != "" {
		tier, err := quality.Parse(q)
		if err != nil {
			return model.TrackRequest{}, err
		}
		req.Quality = tier
	}
	return req, nil
}

// ExtractID accepts a bare identifier, a watch URL (v= parameter), a
// youtu.be short link, or a /shorts/, /embed/, or /live/ path.
func ExtractID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("id is required")
	}
	if idPattern.MatchString(raw) {
		return raw, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid id %q: %w", raw, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		candidate = u.Query().Get("v")
		if candidate == "" {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
				candidate = parts[1]
			}
		}
	default:
		return "", fmt.Errorf("unsupported host %q", u.Hostname())
	}
	if !idPattern.MatchString(candidate) {
		return "", fmt.Errorf("no track id in %q", raw)
	}
	return candidate, nil
}
