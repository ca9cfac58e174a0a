package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mimeType, err := store.Save(ctx, "user-1", "contract.txt", strings.NewReader("agreement text"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len("agreement text")) {
		t.Fatalf("unexpected size %d", size)
	}
	if !strings.HasPrefix(mimeType, "text/plain") {
		t.Fatalf("unexpected mime type %q", mimeType)
	}

	body, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "agreement text" {
		t.Fatalf("unexpected content %q", raw)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Fatalf("deleted object should not open")
	}

	// Deleting again is not an error.
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSaveWithKeyRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	written, err := store.SaveWithKey(ctx, "user/derived.extracted.txt", "text/plain; charset=utf-8", strings.NewReader("derived"))
	if err != nil {
		t.Fatalf("save with key: %v", err)
	}
	if written != int64(len("derived")) {
		t.Fatalf("unexpected written %d", written)
	}

	body, err := store.Open(ctx, "user/derived.extracted.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer body.Close()
	raw, _ := io.ReadAll(body)
	if string(raw) != "derived" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestTraversalKeysRejected(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../escape.txt", "/etc/passwd"} {
		if _, err := store.Open(ctx, key); err == nil {
			t.Fatalf("open %q should be rejected", key)
		}
		if err := store.Delete(ctx, key); err == nil {
			t.Fatalf("delete %q should be rejected", key)
		}
		if _, err := store.SaveWithKey(ctx, key, "text/plain", strings.NewReader("x")); err == nil {
			t.Fatalf("save %q should be rejected", key)
		}
	}
}
