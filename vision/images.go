package vision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var suffixMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IsImageFile reports whether name has a supported image extension
func IsImageFile(name string) bool {
	_, ok := suffixMediaTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ImageSource is one reference image handed to the analyzer
type ImageSource interface {
	Name() string
	Load() (Image, error)
}

// FileImage reads an image from disk
type FileImage struct {
	Path string
}

// Name returns the file name
func (f FileImage) Name() string {
	return filepath.Base(f.Path)
}

// Load reads the file and resolves its media type
func (f FileImage) Load() (Image, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Image{}, err
	}
	return Image{MediaType: mediaTypeFor(f.Path, data), Data: data}, nil
}

// BytesImage is an in-memory image, e.g. from an upload
type BytesImage struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Name returns the original file name
func (b BytesImage) Name() string {
	return b.Filename
}

// Load returns the bytes, resolving a missing media type
func (b BytesImage) Load() (Image, error) {
	if len(b.Data) == 0 {
		return Image{}, fmt.Errorf("image %s is empty", b.Filename)
	}
	mediaType := b.MediaType
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = mediaTypeFor(b.Filename, b.Data)
	}
	return Image{MediaType: mediaType, Data: b.Data}, nil
}

// mediaTypeFor maps a known extension to its media type, sniffs the content
// otherwise, and falls back to image/jpeg
func mediaTypeFor(name string, data []byte) string {
	if mt, ok := suffixMediaTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "image/") {
		return detected.String()
	}
	return "image/jpeg"
}

// ImagesInDir lists the supported images in dir, sorted by name
func ImagesInDir(dir string) ([]ImageSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sources := make([]ImageSource, 0, len(names))
	for _, name := range names {
		sources = append(sources, FileImage{Path: filepath.Join(dir, name)})
	}
	return sources, nil
}

// ImageFetcher downloads product images. Non-image responses must fail.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}
