package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())

	got, ok := store.FindByID("aria")
	if !ok {
		t.Fatalf("expected aria persona to exist")
	}
	if got.Name != "Aria" {
		t.Fatalf("unexpected persona name: %s", got.Name)
	}

	if _, ok := store.FindByID("missing"); ok {
		t.Fatalf("expected lookup of unknown persona to fail")
	}
}

func TestMemoryStoreListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())

	list := store.List()
	list[0].Name = "changed"

	if again := store.List(); again[0].Name == "changed" {
		t.Fatalf("List must not expose internal slice")
	}
}

func TestMemoryStoreLookupIgnoresCase(t *testing.T) {
	store := NewMemoryStore(Seed())

	if _, ok := store.FindByID("  Quill "); !ok {
		t.Fatalf("expected case-insensitive lookup to succeed")
	}
}

func TestMemoryStoreLaterDefinitionReplaces(t *testing.T) {
	items := append(Seed(), Persona{ID: "aria", Name: "Aria II"})
	store := NewMemoryStore(items)

	list := store.List()
	if len(list) != len(Seed()) {
		t.Fatalf("expected %d personas, got %d", len(Seed()), len(list))
	}
	if list[0].Name != "Aria II" {
		t.Fatalf("override should keep the original position, got %s first", list[0].Name)
	}
}

func TestParsePersonas(t *testing.T) {
	raw := []byte(`
personas:
  - id: Nova
    name: Nova
    title: stargazing guide
    tone: calm
    promptHint: Talk about the night sky.
    openingLine: "Look up, {name}."
    traits: [curious, calm]
`)
	got, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].ID != "nova" || got[0].Title != "stargazing guide" || len(got[0].Traits) != 2 {
		t.Fatalf("unexpected personas: %+v", got)
	}

	if _, err := Parse([]byte("personas:\n  - title: nameless\n")); !errors.Is(err, ErrInvalidPersona) {
		t.Fatalf("expected ErrInvalidPersona, got %v", err)
	}
}

func TestLoadFileMergesOverSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	if err := os.WriteFile(path, []byte("personas:\n  - id: nova\n    name: Nova\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	store := NewMemoryStore(items)
	if _, ok := store.FindByID("nova"); !ok {
		t.Fatalf("expected nova to be loaded")
	}
	if _, ok := store.FindByID("aria"); !ok {
		t.Fatalf("seed personas should remain")
	}
}
