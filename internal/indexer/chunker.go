package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepindex/codechunk/internal/models"
	"github.com/deepindex/codechunk/internal/tokenizer"
	"github.com/deepindex/codechunk/pkg/config"
)

// maxChunkableChars is the size above which a file is skipped entirely
// rather than chunked.
const maxChunkableChars = 1_000_000

const defaultMaxChunkTokens = 800

// Chunker is the top-level entry point: it decides whether a file is
// eligible for chunking, routes it to the structural walker or the
// line-level splitter, and assembles the final chunk identities (index,
// digest, metadata).
type Chunker struct {
	config       *config.ChunkingConfig
	langDetector *LanguageDetector
	ast          *ASTChunker
	counter      *tokenizer.Counter
}

// NewChunker builds a Chunker bound to the AST provider and token counter.
func NewChunker(cfg *config.ChunkingConfig) (*Chunker, error) {
	ast, err := NewASTChunker()
	if err != nil {
		return nil, fmt.Errorf("build AST provider: %w", err)
	}
	counter, err := tokenizer.New()
	if err != nil {
		return nil, fmt.Errorf("build token counter: %w", err)
	}
	return &Chunker{
		config:       cfg,
		langDetector: NewLanguageDetector(),
		ast:          ast,
		counter:      counter,
	}, nil
}

// ShouldChunk reports whether a file is eligible for chunking: its basename
// must contain a "." (excludes extensionless files like LICENSE, Makefile)
// and its byte size must not exceed maxChunkableChars.
func ShouldChunk(path string, size int) bool {
	if !strings.Contains(filepath.Base(path), ".") {
		return false
	}
	return size <= maxChunkableChars
}

// ChunkFile reads path, chunks it, and returns the resulting chunks tagged
// with digest. A nil, nil result means the file was skipped by ShouldChunk.
func (c *Chunker) ChunkFile(path, digest string) ([]models.Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if !ShouldChunk(path, len(content)) {
		return nil, nil
	}

	maxTokens := c.maxTokens()
	language, ok := c.langDetector.Detect(path)

	var raws []rawChunk
	switch {
	case !ok:
		raws = splitLines(content, "", path, maxTokens, c.counter)
	case IsNonCode(language):
		raws = splitLines(content, language, path, maxTokens, c.counter)
	case HasGrammar(language):
		raws, err = c.chunkStructural(content, language, path, maxTokens)
		if err != nil {
			raws = splitLines(content, language, path, maxTokens, c.counter)
		}
	default:
		raws = splitLines(content, language, path, maxTokens, c.counter)
	}

	return c.finalize(raws, content, digest), nil
}

func (c *Chunker) maxTokens() int {
	if c.config != nil && c.config.MaxChunkSizeTokens > 0 {
		return c.config.MaxChunkSizeTokens
	}
	return defaultMaxChunkTokens
}

// chunkStructural parses content and runs the structural walker (§4.3) over
// the resulting tree. A parse failure here is not fatal: the caller falls
// back to the line splitter.
func (c *Chunker) chunkStructural(content []byte, language, path string, maxTokens int) ([]rawChunk, error) {
	parser, err := c.ast.ParserFor(language)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	tree, err := c.ast.Parse(parser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	return walkStructural(root, root, content, language, path, maxTokens, c.counter), nil
}

// finalize attaches metadata (for structural chunks), a dense zero-based
// index, and the shared file digest to every raw chunk.
func (c *Chunker) finalize(raws []rawChunk, content []byte, digest string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(raws))
	for i, r := range raws {
		chunk := models.Chunk{
			Content:   r.content,
			StartLine: r.startLine,
			EndLine:   r.endLine,
			FilePath:  r.filepath,
			Index:     i,
			Digest:    digest,
		}
		if r.node != nil && r.root != nil {
			chunk.Metadata = ExtractMetadata(r.node, r.root, r.language, r.filepath, content)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
