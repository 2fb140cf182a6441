package schema

import "testing"

func TestSectionOrderIsDependencySafe(t *testing.T) {
	t.Parallel()

	sections := Sections()
	if len(sections) == 0 {
		t.Fatalf("expected registered sections")
	}
	index := make(map[string]int, len(sections))
	for idx, section := range sections {
		index[section.Name] = idx
	}

	// Tags are referenced by every provider section: they must come first so
	// creates resolve and deletes (applied in reverse order) come last.
	if index["tags"] != 0 {
		t.Fatalf("expected tags first, got order %v", index)
	}
	if index["sync_profiles"] >= index["indexers"] {
		t.Fatalf("sync profiles must precede indexers")
	}
	if index["indexers"] >= index["applications"] {
		t.Fatalf("indexers must precede applications")
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	section, ok := Lookup("indexers")
	if !ok {
		t.Fatalf("expected indexers section")
	}
	if section.Path != "/api/v1/indexer" {
		t.Fatalf("unexpected path %q", section.Path)
	}
	if !section.Provider || section.TypeKey != "definitionName" {
		t.Fatalf("indexers must use the provider shape keyed by definitionName")
	}
	if _, ok := Lookup("bogus"); ok {
		t.Fatalf("expected lookup miss for unregistered section")
	}
}

func TestTagsAreCreateDeleteOnly(t *testing.T) {
	t.Parallel()

	section, ok := Lookup("tags")
	if !ok {
		t.Fatalf("expected tags section")
	}
	if section.Updatable {
		t.Fatalf("tags must not be updatable")
	}
	if section.NameKey != "label" {
		t.Fatalf("tag names travel as label, got %q", section.NameKey)
	}
}

func TestFieldSpecLookup(t *testing.T) {
	t.Parallel()

	section, _ := Lookup("sync_profiles")
	spec, ok := section.FieldSpec("minimum_seeders")
	if !ok {
		t.Fatalf("expected minimum_seeders spec")
	}
	if spec.WireKey() != "minimumSeeders" {
		t.Fatalf("expected wire key minimumSeeders, got %q", spec.WireKey())
	}
	if _, ok := section.FieldSpec("bogus"); ok {
		t.Fatalf("expected miss for unknown field")
	}
}
