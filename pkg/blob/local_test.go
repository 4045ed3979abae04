package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	res, err := store.Put(context.Background(), "pictures/property-1.jpg", strings.NewReader("JPEGDATA"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.URL != "public/pictures/property-1.jpg" {
		t.Errorf("unexpected URL %q", res.URL)
	}
	if res.Size != int64(len("JPEGDATA")) {
		t.Errorf("unexpected size %d", res.Size)
	}

	data, err := os.ReadFile(filepath.Join(dir, "pictures", "property-1.jpg"))
	if err != nil {
		t.Fatalf("read stored object: %v", err)
	}
	if string(data) != "JPEGDATA" {
		t.Errorf("stored bytes = %q", data)
	}
}

func TestLocalStorePutOverwrites(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "documents/a.pdf", strings.NewReader("v1")); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	res, err := store.Put(ctx, "documents/a.pdf", strings.NewReader("version2"))
	if err != nil {
		t.Fatalf("Put v2: %v", err)
	}
	if res.Size != int64(len("version2")) {
		t.Errorf("unexpected size %d after overwrite", res.Size)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	for _, key := range []string{"../escape.txt", "/abs.txt", "."} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}
