package entity

import "strings"

// VideoFile is what the file picker hands to the editor: a declared MIME
// type, a display name and a local path the decoder can open.
type VideoFile struct {
	Name string
	Type string
	Path string
	Size int64
}

// IsVideo reports whether the declared MIME type has the video/ prefix.
func (f VideoFile) IsVideo() bool {
	return strings.HasPrefix(strings.ToLower(f.Type), "video/")
}

// MediaMetadata is what the decoder knows once metadata has loaded.
// Duration is in seconds; a zero Width/Height means the media reported none.
type MediaMetadata struct {
	Duration float64
	Width    int
	Height   int
}
