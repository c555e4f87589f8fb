package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepindex/codechunk/internal/models"
	"github.com/deepindex/codechunk/pkg/config"
)

func newTestChunker(t *testing.T, cfg *config.ChunkingConfig) *Chunker {
	t.Helper()
	chunker, err := NewChunker(cfg)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	return chunker
}

func TestChunker_StructuralJavaClass(t *testing.T) {
	chunker := newTestChunker(t, &config.ChunkingConfig{MaxChunkSizeTokens: 800})

	tmpDir := t.TempDir()
	content := `public class LargeService {
    private String field1;

    public LargeService() {
    }

    public void method1() {
        System.out.println("one");
    }

    public void method2() {
        System.out.println("two");
    }
}
`
	filePath := filepath.Join(tmpDir, "LargeService.java")
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	chunks, err := chunker.ChunkFile(filePath, "digest1")
	if err != nil {
		t.Fatalf("ChunkFile failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	hasClassSymbol := false
	hasMethodSymbol := false
	for _, c := range chunks {
		if c.Digest != "digest1" {
			t.Errorf("expected digest to be carried onto every chunk, got %q", c.Digest)
		}
		if c.Metadata == nil {
			continue
		}
		if c.Metadata.SymbolType == models.SymbolTypeClass {
			hasClassSymbol = true
			if c.Metadata.SymbolName != "LargeService" {
				t.Errorf("expected class symbol name LargeService, got %q", c.Metadata.SymbolName)
			}
		}
		if c.Metadata.SymbolType == models.SymbolTypeMethod || c.Metadata.SymbolType == models.SymbolTypeFunction {
			hasMethodSymbol = true
		}
	}

	if !hasClassSymbol {
		t.Error("expected at least one chunk carrying a class symbol")
	}
	if !hasMethodSymbol {
		t.Error("expected at least one chunk carrying a method symbol")
	}
}

func TestChunker_LargeFunctionCollapses(t *testing.T) {
	chunker := newTestChunker(t, &config.ChunkingConfig{MaxChunkSizeTokens: 40})

	tmpDir := t.TempDir()
	var body strings.Builder
	for i := 0; i < 200; i++ {
		body.WriteString("        System.out.println(\"line\");\n")
	}
	content := "public class Test {\n    public void largeMethod() {\n" + body.String() + "    }\n}\n"

	filePath := filepath.Join(tmpDir, "Test.java")
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	chunks, err := chunker.ChunkFile(filePath, "digest2")
	if err != nil {
		t.Fatalf("ChunkFile failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	// With a small token budget the oversized method must collapse to a
	// signature-only summary rather than emit its full body as one chunk.
	for _, c := range chunks {
		if c.Metadata != nil && c.Metadata.SymbolName == "largeMethod" {
			if strings.Count(c.Content, "System.out.println") > 5 {
				t.Errorf("expected largeMethod to collapse, got %d-line body in chunk", strings.Count(c.Content, "\n"))
			}
		}
	}
}

func TestChunker_EmptyFile(t *testing.T) {
	chunker := newTestChunker(t, &config.ChunkingConfig{})

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "empty.java")
	if err := os.WriteFile(filePath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	chunks, err := chunker.ChunkFile(filePath, "digest3")
	if err != nil {
		t.Fatalf("ChunkFile failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty file, got %d", len(chunks))
	}
}

func TestChunker_NonCodeFileUsesLineSplitter(t *testing.T) {
	chunker := newTestChunker(t, &config.ChunkingConfig{MaxChunkSizeTokens: 20})

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "styles.css")
	content := strings.Repeat("body { color: red; }\n", 50)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	chunks, err := chunker.ChunkFile(filePath, "digest4")
	if err != nil {
		t.Fatalf("ChunkFile failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks for a non-code file routed to the line splitter")
	}
	for _, c := range chunks {
		if c.Metadata != nil {
			t.Error("line-split chunks should carry no symbol metadata")
		}
	}
}

func TestChunker_UnrecognizedExtensionFallsBackToLines(t *testing.T) {
	chunker := newTestChunker(t, &config.ChunkingConfig{})

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(filePath, []byte("just some notes\nacross two lines\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	chunks, err := chunker.ChunkFile(filePath, "digest5")
	if err != nil {
		t.Fatalf("ChunkFile failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk for an unrecognized but chunkable file")
	}
}

func TestShouldChunk(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		size     int
		expected bool
	}{
		{"normal file", "main.go", 1000, true},
		{"no extension", "Makefile", 1000, false},
		{"too large", "big.go", maxChunkableChars + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldChunk(tt.path, tt.size); got != tt.expected {
				t.Errorf("ShouldChunk(%q, %d) = %v, expected %v", tt.path, tt.size, got, tt.expected)
			}
		})
	}
}
