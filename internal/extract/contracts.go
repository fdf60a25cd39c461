package extract

import (
	"context"
)

// Result is what an extractor hands to the prompt stage.
type Result struct {
	Text      string
	Method    string // "text" | "url:<strategy>" | "image-ocr"
	HasQRCode bool
	ImageURL  string   // public URL of an uploaded poster, if any
	Warnings  []string // out-of-band, non-fatal problems
}

// Extractor turns raw request content into model-ready text.
type Extractor interface {
	Extract(ctx context.Context, content string) (Result, error)
}

// OCR recognizes text in a base64-encoded image.
type OCR interface {
	Recognize(ctx context.Context, imageBase64 string) (string, error)
}

// Uploader stores poster bytes and returns their public URL.
type Uploader interface {
	UploadPoster(ctx context.Context, data []byte, contentType string) (string, error)
}
