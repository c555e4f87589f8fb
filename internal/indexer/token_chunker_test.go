package indexer

import (
	"strings"
	"testing"

	"github.com/deepindex/codechunk/internal/tokenizer"
)

func generateTestContent(lines int) string {
	var sb strings.Builder
	for i := 0; i < lines; i++ {
		sb.WriteString("// Line " + strings.Repeat("x", 10) + "\n")
	}
	return sb.String()
}

func TestSplitLines_RespectsTokenThreshold(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	content := []byte(generateTestContent(200))
	chunks := splitLines(content, "java", "/file.java", 50, counter)

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if counter.Count(c.content) > 50 {
			t.Errorf("chunk %d exceeds token threshold: %d tokens", i, counter.Count(c.content))
		}
	}
}

func TestSplitLines_ManySmallFilesProduceOneChunk(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	content := []byte(generateTestContent(5))
	chunks := splitLines(content, "java", "/file.java", 300, counter)

	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk for small content, got %d", len(chunks))
	}
	if chunks[0].startLine != 1 {
		t.Errorf("expected startLine 1, got %d", chunks[0].startLine)
	}
}

func TestSplitLines_LargeContentProducesMultipleChunks(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	content := []byte(generateTestContent(1000))
	chunks := splitLines(content, "java", "/file.java", 150, counter)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for large content, got %d", len(chunks))
	}

	// Line ranges should be contiguous and increasing.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].startLine <= chunks[i-1].startLine {
			t.Errorf("chunk %d startLine %d does not advance past chunk %d startLine %d",
				i, chunks[i].startLine, i-1, chunks[i-1].startLine)
		}
	}
}

func TestSplitLines_SkipsBlankTrailingChunk(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	content := []byte("content\n\n\n")
	chunks := splitLines(content, "", "/file.txt", 5, counter)

	for _, c := range chunks {
		if strings.TrimSpace(c.content) == "" {
			t.Error("expected no all-whitespace chunk to be emitted")
		}
	}
}

func TestSplitLines_EmptyContent(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	chunks := splitLines([]byte(""), "java", "/file.java", 200, counter)
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestSplitLines_CarriesLanguageAndPath(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	content := []byte("print('hi')\n")
	chunks := splitLines(content, "python", "/script.py", 100, counter)

	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].language != "python" {
		t.Errorf("expected language python, got %q", chunks[0].language)
	}
	if chunks[0].filepath != "/script.py" {
		t.Errorf("expected filepath /script.py, got %q", chunks[0].filepath)
	}
	if chunks[0].node != nil {
		t.Error("expected no AST node on a line-split chunk")
	}
}

func TestSplitLines_OversizedSingleLineEmittedAloneWithinBudget(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	longLine := strings.Repeat("token ", 200)
	content := []byte("short one\n" + longLine + "\nshort two\n")
	chunks := splitLines(content, "", "/file.txt", 20, counter)

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if counter.Count(c.content) > 20 {
			t.Errorf("chunk %d exceeds token budget: %d tokens, content %q", i, counter.Count(c.content), c.content)
		}
	}

	foundOversizedLine := false
	for _, c := range chunks {
		if strings.Contains(c.content, "token token") {
			foundOversizedLine = true
		}
	}
	if !foundOversizedLine {
		t.Error("expected the oversized line to still be represented in some (truncated) chunk")
	}
}

func TestSplitLines_NonPositiveThresholdStillMakesProgress(t *testing.T) {
	counter, err := tokenizer.New()
	if err != nil {
		t.Fatalf("tokenizer.New failed: %v", err)
	}

	content := []byte("one\ntwo\nthree\n")
	chunks := splitLines(content, "", "/file.txt", 0, counter)

	if len(chunks) == 0 {
		t.Fatal("expected splitLines to make progress even with a non-positive maxTokens")
	}
}
