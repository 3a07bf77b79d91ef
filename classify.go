package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize is the largest file whose content is read (5 MiB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

const bytesPerMB = 1024 * 1024

// Classification is the outcome of classifying a file by extension and size.
type Classification int

const (
	TextOK Classification = iota
	TooLarge
	BinaryByExtension
)

func (c Classification) String() string {
	switch c {
	case TooLarge:
		return "tooLarge"
	case BinaryByExtension:
		return "binaryByExtension"
	default:
		return "textOk"
	}
}

// builtinBinaryExtensions lists extensions whose content is never read.
var builtinBinaryExtensions = []string{
	// images
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp", ".tif", ".tiff", ".psd", ".heic", ".avif", ".icns",
	// audio
	".mp3", ".wav", ".ogg", ".flac", ".aac", ".m4a", ".wma", ".aiff",
	// video
	".mp4", ".avi", ".mov", ".mkv", ".webm", ".wmv", ".flv", ".m4v", ".mpeg", ".mpg",
	// archives
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar", ".zst", ".lz4",
	// documents
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".odt", ".ods", ".odp", ".rtf",
	// fonts
	".ttf", ".otf", ".woff", ".woff2", ".eot",
	// compiled objects
	".exe", ".dll", ".so", ".dylib", ".o", ".a", ".obj", ".lib", ".class", ".jar", ".pyc", ".pyo", ".wasm", ".node",
	// databases
	".db", ".sqlite", ".sqlite3", ".mdb", ".accdb",
	// disk images
	".iso", ".dmg", ".img", ".vmdk", ".vdi", ".qcow2",
	// misc
	".bin", ".dat", ".pak", ".swf", ".pdb", ".DS_Store",
}

// Classifier decides from extension and size alone whether a file's
// content should be read. No content sniffing is done.
type Classifier struct {
	maxSize    int64
	extensions map[string]struct{}
}

// NewClassifier builds a classifier. extra extends the built-in binary
// extensions; entries without a leading dot get one.
func NewClassifier(maxSize int64, extra []string) *Classifier {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	c := &Classifier{
		maxSize:    maxSize,
		extensions: make(map[string]struct{}, len(builtinBinaryExtensions)+len(extra)),
	}
	for _, ext := range builtinBinaryExtensions {
		c.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range extra {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = struct{}{}
	}
	return c
}

// MaxSize returns the size threshold in bytes.
func (c *Classifier) MaxSize() int64 { return c.maxSize }

// Classify returns the classification for path and, for TooLarge, a
// message citing the actual and maximum size.
func (c *Classifier) Classify(path string, size int64) (Classification, string) {
	if size > c.maxSize {
		return TooLarge, fmt.Sprintf("File too large (%.2f MB). Maximum size is %.0f MB.",
			float64(size)/bytesPerMB, float64(c.maxSize)/bytesPerMB)
	}
	if c.IsBinaryExtension(path) {
		return BinaryByExtension, ""
	}
	return TextOK, ""
}

// IsBinaryExtension reports whether path has a binary extension.
func (c *Classifier) IsBinaryExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := c.extensions[ext]
	return ok
}
