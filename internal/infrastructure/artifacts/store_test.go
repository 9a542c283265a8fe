package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"LeakScanner/internal/domain"
)

func TestSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)
	c := domain.Candidate{Source: domain.SourcePaste, ID: "abc", Ext: ".TXT"}
	res := domain.FetchResult{Body: []byte("secret"), ContentHash: "deadbeef"}

	path, err := s.Save(context.Background(), c, res)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if want := filepath.Join(dir, "paste", "deadbeef.txt"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "secret" {
		t.Fatalf("unexpected content %q %v", raw, err)
	}

	again, err := s.Save(context.Background(), c, res)
	if err != nil || again != path {
		t.Fatalf("second save should reuse path, got %q %v", again, err)
	}
}

func TestSaveComputesHashAndSanitizesExt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir)
	c := domain.Candidate{Source: domain.SourceTelegram, Ext: "/../../evil"}

	path, err := s.Save(context.Background(), c, domain.FetchResult{Body: []byte("x")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	want := filepath.Join(dir, "telegram", "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881.bin")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}

func TestSaveRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(t.TempDir()).Save(context.Background(), domain.Candidate{}, domain.FetchResult{}); err == nil {
		t.Fatal("expected error for nil body")
	}
}
