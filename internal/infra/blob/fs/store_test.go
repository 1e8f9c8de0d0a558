package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"mfcore/internal/blob/core"
)

func TestPutGetHeadDeleteList(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "exports/a.json", strings.NewReader(`{"k":1}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"kind": "export"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ContentType != "application/json" || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err := store.Put(ctx, "exports/a.json", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("put must fail for existing key")
	}

	got, rc, err := store.Get(ctx, "exports/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(body) != `{"k":1}` {
		t.Fatalf("unexpected body %q err %v", body, err)
	}
	if got.Metadata["kind"] != "export" {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}

	head, err := store.Head(ctx, "exports/a.json")
	if err != nil || head.ETag != info.ETag {
		t.Fatalf("head mismatch: %+v err %v", head, err)
	}

	if _, err := store.Put(ctx, "exports/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "other/c.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put c: %v", err)
	}
	infos, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a.json" || infos[1].Key != "exports/b.json" {
		t.Fatalf("unexpected listing: %+v", infos)
	}

	ok, err := store.Delete(ctx, "exports/a.json")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "exports/a.json")
	if err != nil || ok {
		t.Fatalf("second delete must report missing: ok=%v err=%v", ok, err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "a/../../b", "/absolute"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestPresignURL(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	u, err := store.PresignURL(ctx, "exports/a.json", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(u, "exports/a.json") {
		t.Fatalf("unexpected url %s", u)
	}
	if _, err := store.PresignURL(ctx, "exports/a.json", core.SignedURLOptions{Method: "PUT"}); err != core.ErrUnsupported {
		t.Fatalf("expected unsupported for PUT, got %v", err)
	}
}
