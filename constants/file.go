package constants

import "strings"

// PosterBucket is the object storage bucket holding uploaded posters.
const PosterBucket = "posters"

// MaxUploadBytes caps a single poster upload.
const MaxUploadBytes = 10 << 20

// ImageMIMEToExt maps accepted poster MIME types to file extensions.
var ImageMIMEToExt = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtForMIME returns the extension for mime, defaulting to png.
func ExtForMIME(mime string) string {
	if ext, ok := ImageMIMEToExt[strings.ToLower(strings.TrimSpace(mime))]; ok {
		return ext
	}
	if i := strings.LastIndex(mime, "/"); i >= 0 && i < len(mime)-1 {
		return NormalizeExt(mime[i+1:])
	}
	return "png"
}
