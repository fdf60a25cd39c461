package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

type stubOCR struct {
	text string
	err  error
	got  string
}

func (s *stubOCR) Recognize(_ context.Context, b64 string) (string, error) {
	s.got = b64
	return s.text, s.err
}

type stubUploader struct {
	url   string
	err   error
	calls int
	mime  string
}

func (s *stubUploader) UploadPoster(_ context.Context, _ []byte, contentType string) (string, error) {
	s.calls++
	s.mime = contentType
	return s.url, s.err
}

// 1x1 PNG
var pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestImageExtractor_UploadsAndRecognizes(t *testing.T) {
	ocr := &stubOCR{text: "编程马拉松\n扫码报名"}
	up := &stubUploader{url: "https://cdn.example.com/posters/poster_1.png"}
	e := NewImageExtractor(ocr, nil, WithUploader(up))

	res, err := e.Extract(context.Background(), "data:image/png;base64,"+pngB64)
	if err != nil {
		t.Fatal(err)
	}
	if ocr.got != pngB64 {
		t.Errorf("ocr received %q", ocr.got)
	}
	if res.ImageURL != up.url || up.mime != "image/png" {
		t.Errorf("upload not recorded: url=%q mime=%q", res.ImageURL, up.mime)
	}
	if !res.HasQRCode || res.Method != "image-ocr" {
		t.Errorf("result = %+v", res)
	}
}

func TestImageExtractor_UploadFailureIsWarning(t *testing.T) {
	e := NewImageExtractor(&stubOCR{text: "讲座"}, nil, WithUploader(&stubUploader{err: errors.New("bucket missing")}))
	res, err := e.Extract(context.Background(), "data:image/png;base64,"+pngB64)
	if err != nil {
		t.Fatalf("upload failure must not be fatal: %v", err)
	}
	if res.ImageURL != "" || len(res.Warnings) != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.HasQRCode {
		t.Error("no QR keyword present")
	}
}

func TestImageExtractor_BareBase64SkipsUpload(t *testing.T) {
	up := &stubUploader{url: "x"}
	e := NewImageExtractor(&stubOCR{text: "讲座"}, nil, WithUploader(up))
	if _, err := e.Extract(context.Background(), pngB64); err != nil {
		t.Fatal(err)
	}
	if up.calls != 0 {
		t.Error("bare base64 should not be uploaded")
	}
}

func TestImageExtractor_OCRFailures(t *testing.T) {
	cases := map[string]*stubOCR{
		"error": {err: errors.New("connection refused")},
		"empty": {text: "  \n "},
	}
	for name, ocr := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewImageExtractor(ocr, nil, WithOCRServiceHint("http://localhost:5001/api/ocr"))
			_, err := e.Extract(context.Background(), "data:image/png;base64,"+pngB64)
			if common.KindOf(err) != common.KindOCRFailed {
				t.Fatalf("kind = %q", common.KindOf(err))
			}
			if common.UserMessage(err) == "" {
				t.Error("OCR failure must carry a hint")
			}
		})
	}
}

func TestDecodeImagePayload(t *testing.T) {
	data, mime, b64, err := DecodeImagePayload(" data:image/png;base64," + pngB64 + "\n")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := base64.StdEncoding.DecodeString(pngB64)
	if string(data) != string(raw) || mime != "image/png" || b64 != pngB64 {
		t.Errorf("decoded mime=%q b64=%q", mime, b64)
	}
	if _, _, _, err := DecodeImagePayload("data:image/png;base64,"); err == nil {
		t.Error("empty payload should fail")
	}
	if _, _, _, err := DecodeImagePayload("not base64 !!"); err == nil {
		t.Error("garbage should fail")
	}
}

func TestDecodeImagePayloadAcceptsDataURIVariants(t *testing.T) {
	raw, _ := base64.StdEncoding.DecodeString(pngB64)
	wrapped := pngB64[:40] + "\r\n" + pngB64[40:80] + "\n  " + pngB64[80:]
	cases := []struct {
		name, in, mime string
	}{
		{"wrapped payload", "data:image/png;base64," + wrapped, "image/png"},
		{"digit in subtype", "data:image/jp2;base64," + pngB64, "image/jp2"},
		{"dotted subtype", "data:image/vnd.microsoft.icon;base64," + pngB64, "image/vnd.microsoft.icon"},
		{"extra parameter", "data:image/png;name=poster.png;base64," + pngB64, "image/png"},
		{"upper case mime", "data:IMAGE/PNG;base64," + pngB64, "image/png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, mime, b64, err := DecodeImagePayload(tc.in)
			if err != nil {
				t.Fatalf("DecodeImagePayload: %v", err)
			}
			if string(data) != string(raw) || b64 != pngB64 || mime != tc.mime {
				t.Errorf("mime=%q b64=%q", mime, b64)
			}
		})
	}
	if _, _, _, err := DecodeImagePayload("data:image/png," + pngB64); err == nil {
		t.Error("data URI without base64 marker should fail")
	}
}
