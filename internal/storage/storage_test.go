package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

func TestPosterKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	cases := []struct {
		mime, name, want string
	}{
		{"image/jpeg", "", "poster_1700000000123.jpg"},
		{"image/webp", "", "poster_1700000000123.webp"},
		{"image/png", "招新 海报.png", "poster_1700000000123_.png"},
		{"image/png", "../../etc/passwd", "poster_1700000000123_passwd"},
		{"image/png", "flyer-v2.PNG", "poster_1700000000123_flyer-v2.PNG"},
	}
	for _, tc := range cases {
		if got := PosterKey(at, tc.mime, tc.name); got != tc.want {
			t.Errorf("PosterKey(%q, %q) = %q, want %q", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestSupabaseStore_Put(t *testing.T) {
	var gotAuth, gotType, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"Key":"posters/x"}`))
	}))
	defer srv.Close()

	s, err := NewSupabaseStore(srv.URL, "service-key", "", time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.Put(context.Background(), "poster_1.png", []byte("img"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/storage/v1/object/posters/poster_1.png" || gotAuth != "Bearer service-key" || gotType != "image/png" || string(gotBody) != "img" {
		t.Errorf("request path=%q auth=%q type=%q body=%q", gotPath, gotAuth, gotType, gotBody)
	}
	if want := srv.URL + "/storage/v1/object/public/posters/poster_1.png"; u != want {
		t.Errorf("public url = %q, want %q", u, want)
	}
}

func TestSupabaseStore_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Bucket not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	s, _ := NewSupabaseStore(srv.URL, "k", "posters", time.Second, nil)
	_, err := s.Put(context.Background(), "poster_1.png", []byte("img"), "image/png")
	if err == nil || !strings.Contains(err.Error(), "Bucket not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewSupabaseStore_RequiresCredentials(t *testing.T) {
	if _, err := NewSupabaseStore("", "k", "", 0, nil); err == nil {
		t.Error("missing url should fail")
	}
	if _, err := NewSupabaseStore("https://x.supabase.co", "", "", 0, nil); err == nil {
		t.Error("missing key should fail")
	}
}

func TestLocalStore_AndUploader(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/", nil)
	if err != nil {
		t.Fatal(err)
	}
	up := NewPosterUploader(store, nil)
	up.now = func() time.Time { return time.UnixMilli(42) }

	u, err := up.UploadPoster(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if u != "/uploads/posters/poster_42.png" {
		t.Errorf("url = %q", u)
	}
	data, err := os.ReadFile(filepath.Join(dir, "posters", "poster_42.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("stored data = %q, err = %v", data, err)
	}
}

func TestPosterUploader_Rejects(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir(), "", nil)
	up := NewPosterUploader(store, nil)
	ctx := context.Background()

	if _, err := up.Upload(ctx, nil, "image/png", ""); err == nil {
		t.Error("empty upload should fail")
	}
	if _, err := up.Upload(ctx, []byte("%PDF"), "application/pdf", ""); err == nil {
		t.Error("non-image should fail")
	}
	if _, err := NewPosterUploader(nil, nil).UploadPoster(ctx, []byte("x"), "image/png"); err == nil {
		t.Error("nil store should fail")
	}
}

func TestNew(t *testing.T) {
	s, err := New(common.StorageConfig{Driver: "none"}, nil)
	if err != nil || s != nil {
		t.Errorf("none: store=%v err=%v", s, err)
	}
	if _, err := New(common.StorageConfig{Driver: "ftp"}, nil); err == nil {
		t.Error("unknown driver should fail")
	}
	s, err = New(common.StorageConfig{Driver: "local", LocalDir: t.TempDir()}, nil)
	if err != nil || s == nil {
		t.Errorf("local: store=%v err=%v", s, err)
	}
}
