package tmdb

import "strings"

// Image size variants served by the provider's image host.
const (
	SizeThumbnail = "w154"
	SizeLarge     = "w780"
	SizeOriginal  = "original"
)

// ImageBase composes fetchable image URLs from provider path fragments.
type ImageBase string

// DefaultImageBase is the public image host.
const DefaultImageBase ImageBase = "https://image.tmdb.org/t/p"

// URL returns the image URL for size and path, or "" when path is empty.
func (b ImageBase) URL(size, path string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(string(b), "/") + "/" + size + path
}
