package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
	"github.com/hitoshi/postpay/internal/security"
)

// --- モック定義 ---

type mockMediaRepo struct {
	created  []*model.Media
	createFn func(ctx context.Context, m *model.Media) error
}

func (r *mockMediaRepo) Create(ctx context.Context, m *model.Media) error {
	if r.createFn != nil {
		return r.createFn(ctx, m)
	}
	r.created = append(r.created, m)
	return nil
}

func (r *mockMediaRepo) FindByID(_ context.Context, id string) (*model.Media, error) {
	for _, m := range r.created {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

var _ repository.MediaRepository = (*mockMediaRepo)(nil)

type mockValidator struct {
	err error
}

func (v *mockValidator) ValidateURL(string) error { return v.err }

// pngHeader はhttp.DetectContentTypeがimage/pngと判定する最小のバイト列。
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestService(t *testing.T, repo *mockMediaRepo, validator URLValidator, maxSize int64) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := NewDiskStorage(dir)
	if err != nil {
		t.Fatalf("NewDiskStorage failed: %v", err)
	}
	if validator == nil {
		validator = &mockValidator{}
	}
	svc := NewService(repo, storage, validator, http.DefaultClient, nil, ServiceConfig{MaxSize: maxSize})
	return svc, dir
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- Upload ---

func TestUpload_StoresImage(t *testing.T) {
	repo := &mockMediaRepo{}
	svc, dir := newTestService(t, repo, nil, 1024)

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 600)...)
	m, err := svc.Upload(context.Background(), "user-1", "photo.PNG", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", m.ContentType)
	}
	if !strings.HasSuffix(m.Filename, ".png") || !strings.HasPrefix(m.Filename, m.ID) {
		t.Errorf("Filename = %q, want <id>.png", m.Filename)
	}
	if m.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", m.Size, len(content))
	}
	if m.Source != model.MediaSourceUpload || m.OwnerID != "user-1" || m.OriginalName != "photo.PNG" {
		t.Errorf("unexpected media: %+v", m)
	}
	if svc.URLFor(m) != "/uploads/"+m.Filename {
		t.Errorf("URLFor = %q", svc.URLFor(m))
	}

	stored, err := os.ReadFile(filepath.Join(dir, m.Filename))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Error("stored content differs from upload")
	}
	if len(repo.created) != 1 {
		t.Errorf("created = %d, want 1", len(repo.created))
	}
}

func TestUpload_RejectsNonMedia(t *testing.T) {
	repo := &mockMediaRepo{}
	svc, dir := newTestService(t, repo, nil, 1024)

	_, err := svc.Upload(context.Background(), "user-1", "notes.txt", strings.NewReader("just some text"))
	assertCode(t, err, model.ErrCodeUnsupportedMedia)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 || len(repo.created) != 0 {
		t.Error("nothing must be stored for unsupported media")
	}
}

func TestUpload_TooLarge(t *testing.T) {
	repo := &mockMediaRepo{}
	svc, _ := newTestService(t, repo, nil, 100)

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 200)...)
	_, err := svc.Upload(context.Background(), "user-1", "big.png", bytes.NewReader(content))
	assertCode(t, err, model.ErrCodeFileTooLarge)
	if len(repo.created) != 0 {
		t.Error("metadata must not be recorded")
	}
}

func TestUpload_Empty(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{}, nil, 100)

	_, err := svc.Upload(context.Background(), "user-1", "empty.png", bytes.NewReader(nil))
	assertCode(t, err, model.ErrCodeFileRequired)
}

func TestUpload_RepoFailure_RemovesFile(t *testing.T) {
	repo := &mockMediaRepo{
		createFn: func(context.Context, *model.Media) error { return errors.New("db down") },
	}
	svc, dir := newTestService(t, repo, nil, 1024)

	if _, err := svc.Upload(context.Background(), "user-1", "a.png", bytes.NewReader(pngHeader)); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected orphaned file to be removed, found %d entries", len(entries))
	}
}

// --- ImportRemote ---

func TestImportRemote_StoresFetchedImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer ts.Close()

	repo := &mockMediaRepo{}
	svc, _ := newTestService(t, repo, nil, 1024)

	m, err := svc.ImportRemote(context.Background(), "user-1", ts.URL+"/images/cat.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Source != model.MediaSourceRemote || m.OriginalName != "cat.png" || m.ContentType != "image/png" {
		t.Errorf("unexpected media: %+v", m)
	}
}

func TestImportRemote_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"blocked", security.ErrBlockedURL, model.ErrCodeSSRFBlocked},
		{"invalid", security.ErrInvalidURL, model.ErrCodeInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, &mockMediaRepo{}, &mockValidator{err: tt.err}, 1024)

			_, err := svc.ImportRemote(context.Background(), "user-1", "http://10.0.0.1/a.png")
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestImportRemote_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	svc, _ := newTestService(t, &mockMediaRepo{}, nil, 1024)

	_, err := svc.ImportRemote(context.Background(), "user-1", ts.URL+"/missing.png")
	assertCode(t, err, model.ErrCodeFetchFailed)
}

func TestImportRemote_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngHeader)
		io.Copy(w, bytes.NewReader(bytes.Repeat([]byte{0}, 4096)))
	}))
	defer ts.Close()

	svc, _ := newTestService(t, &mockMediaRepo{}, nil, 1024)

	_, err := svc.ImportRemote(context.Background(), "user-1", ts.URL+"/huge.png")
	assertCode(t, err, model.ErrCodeFileTooLarge)
}

// --- Get ---

func TestGet_InvalidAndMissing(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{}, nil, 1024)

	_, err := svc.Get(context.Background(), "nope")
	assertCode(t, err, model.ErrCodeInvalidID)

	_, err = svc.Get(context.Background(), "urn:uuid:9f1c4c3e-1d2b-4b8e-a7a5-2f4c7d8e9a01")
	assertCode(t, err, model.ErrCodeInvalidID)

	_, err = svc.Get(context.Background(), "9f1c4c3e-1d2b-4b8e-a7a5-2f4c7d8e9a01")
	assertCode(t, err, model.ErrCodeMediaNotFound)
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType, original, want string
	}{
		{"image/png", "x.jpeg", ".png"},
		{"image/jpeg", "x", ".jpg"},
		{"video/mp4", "clip.MOV", ".mp4"},
		{"image/unknown", "pic.HEIC", ".heic"},
		{"image/unknown", "pic.h/e", ""},
		{"image/unknown", "noext", ""},
	}
	for _, tt := range tests {
		if got := extensionFor(tt.contentType, tt.original); got != tt.want {
			t.Errorf("extensionFor(%q, %q) = %q, want %q", tt.contentType, tt.original, got, tt.want)
		}
	}
}
