package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"LeakScanner/internal/domain"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()

	store, err := OpenArchive(filepath.Join(t.TempDir(), "leaks.json"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := store.Rows(); len(got) != 0 {
		t.Fatalf("expected no rows, got %v", got)
	}
}

func TestOpenCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "leaks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := OpenArchive(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := store.Rows(); len(got) != 0 {
		t.Fatalf("expected no rows, got %v", got)
	}

	ctx := context.Background()
	row := domain.ListingRow{Name: "acme", Link: "https://x/1", DiscoveredAt: "2024-01-01"}
	if err := store.Prepend(ctx, []domain.ListingRow{row}); err != nil {
		t.Fatalf("prepend: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var rows []domain.ListingRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("archive not rewritten as json: %v", err)
	}
	if diff := cmp.Diff([]domain.ListingRow{row}, rows); diff != "" {
		t.Fatalf("archive mismatch (-want +got):\n%s", diff)
	}
}

func TestPrependKeepsNewestFirstAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "leaks.json")
	old := domain.ListingRow{Name: "old", Link: "https://x/old", DiscoveredAt: "2024-01-01"}
	fresh := domain.ListingRow{Name: "fresh", Link: "https://x/new", DiscoveredAt: "2024-02-01"}

	store, err := OpenArchive(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Prepend(ctx, []domain.ListingRow{old}); err != nil {
		t.Fatalf("prepend old: %v", err)
	}
	if err := store.Prepend(ctx, []domain.ListingRow{fresh}); err != nil {
		t.Fatalf("prepend fresh: %v", err)
	}

	reopened, err := OpenArchive(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if diff := cmp.Diff([]domain.ListingRow{fresh, old}, reopened.Rows()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	seen, err := reopened.Seen(ctx, old.DedupKey())
	if err != nil || !seen {
		t.Fatalf("expected key of archived row to be seen, got %v %v", seen, err)
	}
}

func TestMarkIfNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := OpenArchive(filepath.Join(t.TempDir(), "leaks.json"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	first, err := store.MarkIfNew(ctx, "k")
	if err != nil || !first {
		t.Fatalf("first insert should be new: %v %v", first, err)
	}
	second, err := store.MarkIfNew(ctx, "k")
	if err != nil || second {
		t.Fatalf("second insert should be a duplicate: %v %v", second, err)
	}

	if err := store.MarkSeen(ctx, "other"); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if seen, _ := store.Seen(ctx, "other"); !seen {
		t.Fatalf("expected other to be seen")
	}
}

func TestDedupKeyNullTimestamp(t *testing.T) {
	t.Parallel()

	a := domain.ListingRow{Name: "acme", Link: "https://x/1"}
	b := domain.ListingRow{Name: "acme", Link: "https://x/1"}
	c := domain.ListingRow{Name: "acme", Link: "https://x/1", DiscoveredAt: "2024-01-01"}

	if a.DedupKey() != b.DedupKey() {
		t.Fatalf("rows without timestamp should share a key")
	}
	if a.DedupKey() == c.DedupKey() {
		t.Fatalf("timestamped row should not collide with null timestamp")
	}
}

func TestUnmarkKeepsArchivedKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := OpenArchive(filepath.Join(t.TempDir(), "leaks.json"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	row := domain.ListingRow{Name: "Acme", Link: "https://b.test/1"}
	if err := store.Prepend(ctx, []domain.ListingRow{row}); err != nil {
		t.Fatalf("prepend: %v", err)
	}
	if _, err := store.MarkIfNew(ctx, "pending"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	if err := store.Unmark(ctx, "pending"); err != nil {
		t.Fatalf("unmark pending: %v", err)
	}
	if err := store.Unmark(ctx, row.DedupKey()); err != nil {
		t.Fatalf("unmark archived: %v", err)
	}

	if seen, _ := store.Seen(ctx, "pending"); seen {
		t.Fatalf("pending key should be released")
	}
	if seen, _ := store.Seen(ctx, row.DedupKey()); !seen {
		t.Fatalf("archived row must stay deduplicated")
	}
}
