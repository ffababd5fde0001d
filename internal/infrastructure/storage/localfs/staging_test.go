package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestStageOpenRemoveRoundtrip(t *testing.T) {
	staging, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new staging: %v", err)
	}
	ctx := context.Background()

	n, err := staging.Stage(ctx, "item-1", strings.NewReader("staged bytes"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if n != int64(len("staged bytes")) {
		t.Fatalf("expected %d bytes staged, got %d", len("staged bytes"), n)
	}

	reader, err := staging.Open(ctx, "item-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	raw, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "staged bytes" {
		t.Fatalf("expected staged content back, got %q", raw)
	}

	if err := staging.Remove(ctx, "item-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := staging.Open(ctx, "item-1"); err == nil {
		t.Fatal("expected open to fail after remove")
	}
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	staging, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new staging: %v", err)
	}
	if err := staging.Remove(context.Background(), "never-staged"); err != nil {
		t.Fatalf("expected missing file to be fine, got %v", err)
	}
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	dir := t.TempDir()
	staging, err := New(dir)
	if err != nil {
		t.Fatalf("new staging: %v", err)
	}
	ctx := context.Background()

	if _, err := staging.Stage(ctx, "../../escape", strings.NewReader("x")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	reader, err := staging.Open(ctx, "escape")
	if err != nil {
		t.Fatalf("expected traversal key flattened into the root, got %v", err)
	}
	reader.Close()
}
