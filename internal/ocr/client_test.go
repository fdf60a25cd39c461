package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ocr" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Image != "aGVsbG8=" {
			t.Errorf("image = %q", req.Image)
		}
		_ = json.NewEncoder(w).Encode(Reply{Success: true, Text: "讲座"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	got, err := c.Recognize(context.Background(), "aGVsbG8=")
	if err != nil {
		t.Fatal(err)
	}
	if got != "讲座" {
		t.Errorf("text = %q", got)
	}
}

func TestClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(Reply{Error: "tesseract missing"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Recognize(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "tesseract missing") {
		t.Fatalf("err = %v", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond, nil)
	if _, err := c.Recognize(context.Background(), "x"); err == nil {
		t.Fatal("expected connection error")
	}
}
