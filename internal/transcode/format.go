package transcode

import (
	"fmt"
	"strings"
)

// Format describes one delivery encoding.
type Format struct {
	Name      string
	Extension string
	MimeType  string
	codecArgs []string
}

var (
	// MP3 is VBR LAME at its highest quality preset with ID3v2.3 tags.
	MP3 = Format{
		Name:      "mp3",
		Extension: "mp3",
		MimeType:  "audio/mpeg",
		codecArgs: []string{"-c:a", "libmp3lame", "-q:a", "0", "-id3v2_version", "3", "-f", "mp3"},
	}
	// M4A is AAC in an MP4 container with the index moved to the front.
	M4A = Format{
		Name:      "m4a",
		Extension: "m4a",
		MimeType:  "audio/mp4",
		codecArgs: []string{"-c:a", "aac", "-b:a", "256k", "-movflags", "+faststart", "-f", "ipod"},
	}
)

// LookupFormat resolves a configured format name.
func LookupFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mp3":
		return MP3, nil
	case "m4a", "aac":
		return M4A, nil
	default:
		return Format{}, fmt.Errorf("transcode: unsupported format %q", name)
	}
}
