// internal/knowledge/store_test.go
package knowledge

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndListBases(t *testing.T) {
	store := openTestStore(t)

	id1, err := store.CreateBase("go-notes")
	if err != nil {
		t.Fatalf("CreateBase failed: %v", err)
	}
	id2, err := store.CreateBase("papers")
	if err != nil {
		t.Fatalf("CreateBase failed: %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Errorf("Expected distinct non-empty IDs, got %q, %q", id1, id2)
	}

	bases, err := store.ListBases()
	if err != nil {
		t.Fatalf("ListBases failed: %v", err)
	}
	if len(bases) != 2 {
		t.Fatalf("Expected 2 bases, got %d", len(bases))
	}
	if bases[0].Name != "go-notes" || bases[1].Name != "papers" {
		t.Errorf("Unexpected bases %+v", bases)
	}
}

func TestSearch(t *testing.T) {
	store := openTestStore(t)

	baseID, err := store.CreateBase("docs")
	if err != nil {
		t.Fatal(err)
	}
	otherID, err := store.CreateBase("other")
	if err != nil {
		t.Fatal(err)
	}

	items := []Item{
		{Title: "Goroutines", SourceURL: "https://go.dev/tour", Content: "concurrency primitives"},
		{Title: "Channels", Content: "goroutine communication"},
		{Title: "Errors", Content: "error wrapping"},
	}
	for _, item := range items {
		if _, err := store.AddItem(baseID, item); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}
	if _, err := store.AddItem(otherID, Item{Title: "Goroutines elsewhere", Content: "x"}); err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(baseID, "goroutine", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits scoped to the base, got %d", len(hits))
	}
	if hits[0].Title != "Goroutines" || hits[0].SourceURL != "https://go.dev/tour" {
		t.Errorf("Unexpected first hit %+v", hits[0])
	}
	if hits[0].BaseID != baseID {
		t.Errorf("Hit should carry its base ID, got %q", hits[0].BaseID)
	}
}

func TestSearchLimit(t *testing.T) {
	store := openTestStore(t)

	baseID, err := store.CreateBase("docs")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := store.AddItem(baseID, Item{Title: "match", Content: "match"}); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := store.Search(baseID, "match", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("Expected limit applied, got %d hits", len(hits))
	}
}

func TestSearchAllSpansBases(t *testing.T) {
	store := openTestStore(t)

	baseA, err := store.CreateBase("a")
	if err != nil {
		t.Fatal(err)
	}
	baseB, err := store.CreateBase("b")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddItem(baseA, Item{Title: "Goroutines", Content: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddItem(baseB, Item{Title: "More goroutines", Content: "y"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddItem(baseB, Item{Title: "Channels", Content: "z"}); err != nil {
		t.Fatal(err)
	}

	hits, err := store.SearchAll("goroutine", 10)
	if err != nil {
		t.Fatalf("SearchAll failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected hits from both bases, got %d", len(hits))
	}
	if hits[0].BaseID != baseA || hits[1].BaseID != baseB {
		t.Errorf("Unexpected base IDs %q, %q", hits[0].BaseID, hits[1].BaseID)
	}
}

func TestSearchNoMatches(t *testing.T) {
	store := openTestStore(t)

	baseID, err := store.CreateBase("docs")
	if err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(baseID, "absent", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("Expected no hits, got %d", len(hits))
	}
}
