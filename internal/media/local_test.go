package media

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
)

func newTestLocalStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("UPLOAD_DIR", dir)
	t.Setenv("PUBLIC_BASE_URL", "")
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	store, err := NewLocalStore(log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store, dir
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	payload := []byte("jpeg-bytes")
	if err := store.Save(ctx, "user-1/photo.jpg", bytes.NewReader(payload)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rc, err := store.Open(ctx, "user-1/photo.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %q", got)
	}

	if err := store.Delete(ctx, "user-1/photo.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, "user-1/photo.jpg"); err == nil {
		t.Fatalf("Open after delete should fail")
	}
}

func TestLocalStoreSandboxesTraversalKeys(t *testing.T) {
	store, dir := newTestLocalStore(t)
	ctx := context.Background()

	// A traversal key gets flattened inside the base dir rather than escaping.
	if err := store.Save(ctx, "../outside.txt", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "..", "outside.txt")); err == nil {
		t.Fatalf("traversal key escaped the base dir")
	}
	if _, err := os.Stat(filepath.Join(dir, "outside.txt")); err != nil {
		t.Fatalf("flattened file missing: %v", err)
	}

	if _, err := store.Open(ctx, "../../etc/passwd"); err == nil {
		t.Fatalf("Open must not reach outside the base dir")
	}
}

func TestLocalStorePublicURL(t *testing.T) {
	store, _ := newTestLocalStore(t)
	if got := store.PublicURL("user-1/photo.jpg"); got != "/uploads/user-1/photo.jpg" {
		t.Fatalf("PublicURL = %q", got)
	}
}
