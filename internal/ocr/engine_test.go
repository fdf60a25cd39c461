package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

type stubRunner struct {
	calls  [][]string
	out    map[bool]string // keyed by "is tsv call"
	err    error
	sawImg bool
}

func (s *stubRunner) Run(_ context.Context, _ *slog.Logger, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if len(args) > 0 {
		if _, err := os.Stat(args[0]); err == nil {
			s.sawImg = true
		}
	}
	if s.err != nil {
		return nil, []byte("boom"), s.err
	}
	tsv := args[len(args)-1] == "tsv"
	return []byte(s.out[tsv]), nil, nil
}

var pngBytes, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func TestEngine_RecognizeBytes(t *testing.T) {
	r := &stubRunner{out: map[bool]string{false: "活 动 时 间 ： 周 五\n\n\n\nScan QR  to join\n-----\n"}}
	e := NewEngine(Config{TessdataDir: "/td", PSM: 6}, nil, WithRunner(r))

	res, err := e.RecognizeBytes(context.Background(), pngBytes)
	if err != nil {
		t.Fatal(err)
	}
	if want := "活动时间：周五\n\nScan QR to join"; res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
	if !r.sawImg {
		t.Error("tesseract should have been given an existing scratch file")
	}
	got := strings.Join(r.calls[0][1:], " ")
	for _, want := range []string{"stdout -l chi_sim+eng", "--psm 6", "--tessdata-dir /td"} {
		if !strings.Contains(got, want) {
			t.Errorf("args %q missing %q", got, want)
		}
	}
	if !strings.HasSuffix(r.calls[0][1], ".png") {
		t.Errorf("scratch file should carry the sniffed extension: %s", r.calls[0][1])
	}
	if len(r.calls) != 1 {
		t.Errorf("tsv pass should be off by default, got %d calls", len(r.calls))
	}
}

func TestEngine_TSVConfidence(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t10\t10\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\t讲座\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\t报名\n"
	r := &stubRunner{out: map[bool]string{false: "讲座 报名", true: tsv}}
	e := NewEngine(Config{TSVConfidence: true}, nil, WithRunner(r))

	res, err := e.RecognizeBytes(context.Background(), pngBytes)
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence < 0.79 || res.Confidence > 0.81 {
		t.Errorf("confidence = %v, want 0.8", res.Confidence)
	}
}

func TestEngine_Failures(t *testing.T) {
	e := NewEngine(Config{}, nil, WithRunner(&stubRunner{err: errors.New("exit 1")}))
	if _, err := e.RecognizeBytes(context.Background(), pngBytes); err == nil {
		t.Error("runner failure should surface")
	}
	if _, err := e.RecognizeBytes(context.Background(), nil); err == nil {
		t.Error("empty image should fail")
	}
	if _, err := e.Recognize(context.Background(), "%%%"); err == nil {
		t.Error("bad base64 should fail")
	}
}

func TestEngine_HEICNeedsConverter(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
	r := &stubRunner{out: map[bool]string{false: "x"}}
	_, err := NewEngine(Config{}, nil, WithRunner(r)).RecognizeBytes(context.Background(), heic)
	if err == nil || !strings.Contains(err.Error(), "HEIC_CONVERTER") {
		t.Fatalf("err = %v", err)
	}
	if len(r.calls) != 0 {
		t.Error("tesseract must not run on unconverted HEIC")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"a\r\nb\t\tc":       "a\nb c",
		"招 聘 会\n\n\n\n\n地点": "招聘会\n\n地点",
		"Career  Fair 2024": "Career Fair 2024",
		"======\n讲座":        "讲座",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
