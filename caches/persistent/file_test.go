package persistent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := newFile(dir, "ccu-test", "widgets")

	in := map[string]int{"a": 1, "b": 2}
	if err := f.save(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out := make(map[string]int)
	f2 := newFile(dir, "ccu-test", "widgets")
	if err := f2.load(&out); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if out["a"] != 1 || out["b"] != 2 {
		t.Fatalf("unexpected loaded content: %+v", out)
	}
}

func TestFileLoadMissingIsNoOp(t *testing.T) {
	dir := t.TempDir()
	f := newFile(dir, "ccu-test", "absent")
	out := map[string]int{"pristine": 1}
	if err := f.load(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["pristine"] != 1 {
		t.Fatal("load of a missing file must not modify the target")
	}
}

func TestFileSaveSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	f := newFile(dir, "ccu-test", "widgets")
	in := map[string]int{"a": 1}
	if err := f.save(in); err != nil {
		t.Fatal(err)
	}
	info1, err := os.Stat(f.path)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.save(in); err != nil {
		t.Fatal(err)
	}
	info2, err := os.Stat(f.path)
	if err != nil {
		t.Fatal(err)
	}
	if info1.ModTime() != info2.ModTime() {
		t.Fatal("expected unchanged content to skip the write entirely")
	}
}

func TestFileLoadParseFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccu-test_widgets")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	f := newFile(dir, "ccu-test", "widgets")
	out := make(map[string]int)
	if err := f.load(&out); err == nil {
		t.Fatal("expected parse failure to be reported")
	}
}
