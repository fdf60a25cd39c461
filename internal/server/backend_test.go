package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/campus-feed/internal/ocr"
)

type stubRecognizer struct {
	got []byte
	err error
}

func (r *stubRecognizer) RecognizeBytes(_ context.Context, data []byte) (ocr.Result, error) {
	r.got = data
	if r.err != nil {
		return ocr.Result{}, r.err
	}
	return ocr.Result{Text: "讲座 报名 扫码", Language: "chi_sim+eng", Confidence: 87.5, Duration: 1200 * time.Millisecond}, nil
}

type stubContent struct {
	content string
	err     error
}

func (c stubContent) Extract(context.Context, string) (string, error) { return c.content, c.err }

func postBackend(t *testing.T, h http.Handler, path, contentType string, body []byte) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func TestBackendOCRDataURI(t *testing.T) {
	rec := &stubRecognizer{}
	h := NewBackendServer(rec, nil, nil, nil).Routes()

	body, _ := json.Marshal(ocr.Request{Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)})
	code, raw := postBackend(t, h, "/api/ocr", "application/json", body)
	if code != http.StatusOK {
		t.Fatalf("status = %d body %s", code, raw)
	}
	var reply ocr.Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatal(err)
	}
	want := ocr.Reply{Success: true, Text: "讲座 报名 扫码", Language: "chi_sim+eng", Confidence: 87.5, DurationMS: 1200}
	if diff := cmp.Diff(want, reply); diff != "" {
		t.Errorf("reply (-want +got):\n%s", diff)
	}
	if !bytes.Equal(rec.got, pngBytes) {
		t.Errorf("recognizer got %q", rec.got)
	}
}

func TestBackendOCRMultipart(t *testing.T) {
	rec := &stubRecognizer{}
	h := NewBackendServer(rec, nil, nil, nil).Routes()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "poster.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(pngBytes)
	_ = mw.Close()

	code, raw := postBackend(t, h, "/api/ocr", mw.FormDataContentType(), buf.Bytes())
	if code != http.StatusOK {
		t.Fatalf("status = %d body %s", code, raw)
	}
	if !bytes.Equal(rec.got, pngBytes) {
		t.Errorf("recognizer got %q", rec.got)
	}
}

func TestBackendOCRErrors(t *testing.T) {
	cases := []struct {
		name string
		rec  *stubRecognizer
		body string
		want int
	}{
		{"missing image", &stubRecognizer{}, `{}`, http.StatusBadRequest},
		{"bad base64", &stubRecognizer{}, `{"image":"%%%"}`, http.StatusBadRequest},
		{"engine failure", &stubRecognizer{err: errors.New("tesseract exited 1")}, `{"image":"aGVsbG8="}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBackendServer(tc.rec, nil, nil, nil).Routes()
			code, raw := postBackend(t, h, "/api/ocr", "application/json", []byte(tc.body))
			if code != tc.want {
				t.Fatalf("status = %d, want %d", code, tc.want)
			}
			var reply ocr.Reply
			if err := json.Unmarshal(raw, &reply); err != nil {
				t.Fatal(err)
			}
			if reply.Success || reply.Error == "" {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestBackendExtractContent(t *testing.T) {
	cases := []struct {
		name    string
		content ContentExtractor
		body    string
		want    int
		text    string
	}{
		{"ok", stubContent{content: "# 招聘公告\n\n正文"}, `{"url":"https://mp.weixin.qq.com/s/abc"}`, http.StatusOK, "# 招聘公告\n\n正文"},
		{"no renderer", nil, `{"url":"https://mp.weixin.qq.com/s/abc"}`, http.StatusServiceUnavailable, ""},
		{"relative url", stubContent{}, `{"url":"/s/abc"}`, http.StatusBadRequest, ""},
		{"render failure", stubContent{err: errors.New("navigation timeout")}, `{"url":"https://example.com"}`, http.StatusBadGateway, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBackendServer(&stubRecognizer{}, tc.content, nil, nil).Routes()
			code, raw := postBackend(t, h, "/api/extract-content", "application/json", []byte(tc.body))
			if code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", code, tc.want, raw)
			}
			var reply extractContentReply
			if err := json.Unmarshal(raw, &reply); err != nil {
				t.Fatal(err)
			}
			if reply.Success != (tc.want == http.StatusOK) || reply.Content != tc.text {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestBackendHealth(t *testing.T) {
	h := NewBackendServer(&stubRecognizer{}, nil, nil, nil).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"renderer":false`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}
