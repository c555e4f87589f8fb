package indexer

import (
	"testing"

	"github.com/deepindex/codechunk/internal/models"
)

func TestResolver_BackfillsReferencedBy(t *testing.T) {
	defChunk := &models.Chunk{
		FilePath:  "/repo/service.go",
		StartLine: 5,
		Metadata:  &models.ChunkMetadata{SymbolType: models.SymbolTypeFunction, SymbolName: "DoWork"},
	}
	callerChunk := &models.Chunk{
		FilePath:  "/repo/main.go",
		StartLine: 10,
		Metadata:  &models.ChunkMetadata{SymbolType: models.SymbolTypeFunction, SymbolName: "main", ReferencesTo: []string{"DoWork"}},
	}

	resolver := NewResolver("/repo")
	resolver.Resolve([]*models.Chunk{defChunk, callerChunk})

	if len(defChunk.Metadata.ReferencedBy) != 1 {
		t.Fatalf("expected one referenced_by entry, got %v", defChunk.Metadata.ReferencedBy)
	}
	if defChunk.Metadata.ReferencedBy[0] != "main.go:10" {
		t.Errorf("expected referenced_by main.go:10, got %q", defChunk.Metadata.ReferencedBy[0])
	}
}

func TestResolver_BackfillsSubclasses(t *testing.T) {
	base := &models.Chunk{
		FilePath: "/repo/animal.go",
		Metadata: &models.ChunkMetadata{SymbolType: models.SymbolTypeClass, SymbolName: "Animal"},
	}
	derived := &models.Chunk{
		FilePath: "/repo/dog.go",
		Metadata: &models.ChunkMetadata{SymbolType: models.SymbolTypeClass, SymbolName: "Dog", Extends: "Animal"},
	}

	resolver := NewResolver("/repo")
	resolver.Resolve([]*models.Chunk{base, derived})

	if len(base.Metadata.Subclasses) != 1 || base.Metadata.Subclasses[0] != "Dog" {
		t.Errorf("expected subclasses [Dog], got %v", base.Metadata.Subclasses)
	}
}

func TestResolver_BackfillsDependenciesAndDependents(t *testing.T) {
	producer := &models.Chunk{
		FilePath: "/repo/util.go",
		Metadata: &models.ChunkMetadata{SymbolType: models.SymbolTypeFile, Exports: []string{"Helper"}},
	}
	consumer := &models.Chunk{
		FilePath: "/repo/main.go",
		Metadata: &models.ChunkMetadata{SymbolType: models.SymbolTypeFile, Imports: []string{"Helper"}},
	}

	resolver := NewResolver("/repo")
	resolver.Resolve([]*models.Chunk{producer, consumer})

	if len(consumer.Metadata.Dependencies) != 1 || consumer.Metadata.Dependencies[0] != "util.go" {
		t.Errorf("expected dependencies [util.go], got %v", consumer.Metadata.Dependencies)
	}
	if len(producer.Metadata.Dependents) != 1 || producer.Metadata.Dependents[0] != "main.go" {
		t.Errorf("expected dependents [main.go], got %v", producer.Metadata.Dependents)
	}
}

func TestResolver_NilMetadataIsSkippedWithoutPanic(t *testing.T) {
	chunks := []*models.Chunk{
		{FilePath: "/repo/a.go"},
		{FilePath: "/repo/b.go", Metadata: &models.ChunkMetadata{SymbolName: "X"}},
	}

	resolver := NewResolver("/repo")
	resolver.Resolve(chunks)
}

func TestResolver_DoesNotSelfReference(t *testing.T) {
	self := &models.Chunk{
		FilePath: "/repo/a.go",
		Metadata: &models.ChunkMetadata{SymbolType: models.SymbolTypeFunction, SymbolName: "recurse", ReferencesTo: []string{"recurse"}},
	}

	resolver := NewResolver("/repo")
	resolver.Resolve([]*models.Chunk{self})

	if len(self.Metadata.ReferencedBy) != 0 {
		t.Errorf("expected no self-reference in referenced_by, got %v", self.Metadata.ReferencedBy)
	}
}
