// Package models holds the data types shared across the chunking,
// indexing, and retrieval pipeline.
package models

import "time"

// SymbolType classifies the declaration a chunk represents.
type SymbolType string

const (
	SymbolTypeFile      SymbolType = "file"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeMethod    SymbolType = "method"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeStruct    SymbolType = "struct"
	SymbolTypeTrait     SymbolType = "trait"
)

// ChunkMetadata carries the symbol, import/export and cross-file facts
// attached to a Chunk. Every field is optional; absence and an empty
// collection are not distinguished on the wire.
type ChunkMetadata struct {
	SymbolType SymbolType `json:"symbol_type,omitempty"`
	SymbolName string     `json:"symbol_name,omitempty"`

	// SymbolDefinitions maps a nested definition's name to "line:<row>".
	SymbolDefinitions map[string]string `json:"symbol_definitions,omitempty"`

	Imports      []string `json:"imports,omitempty"`
	Exports      []string `json:"exports,omitempty"`
	ReferencesTo []string `json:"references_to,omitempty"`

	// ReferencedBy holds "<relpath>:<line>" locations. Back-filled by the resolver.
	ReferencedBy []string `json:"referenced_by,omitempty"`

	Extends    string   `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`

	// Subclasses, Dependencies, Dependents are back-filled by the resolver.
	Subclasses   []string `json:"subclasses,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Dependents   []string `json:"dependents,omitempty"`
}

// Chunk is the final unit produced by the chunker and persisted by the
// indexer: a contiguous text span from one file plus its position and
// optional metadata.
type Chunk struct {
	Content   string         `json:"content"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	FilePath  string         `json:"filepath"`
	Index     int            `json:"index"`
	Digest    string         `json:"digest"`
	Metadata  *ChunkMetadata `json:"metadata,omitempty"`

	// Embedding is populated by the Indexer after chunking, before upsert.
	// It is not part of the chunker's output contract.
	Embedding []float32 `json:"-"`
}

// FileRecord identifies one version of a source file by path and digest.
// Supplied by the caller; read-only to the chunking engine.
type FileRecord struct {
	Path   string
	Digest string
}

// IndexResultType names the three batch categories the Indexer's classify
// step sorts paths into (compute, add_tag, delete).
type IndexResultType string

const (
	IndexResultCompute IndexResultType = "compute"
	IndexResultAddTag  IndexResultType = "add_tag"
	IndexResultDelete  IndexResultType = "delete"
)

// ProgressStatus is the state of a ProgressRecord.
type ProgressStatus string

const (
	ProgressIndexing ProgressStatus = "indexing"
	ProgressSuccess  ProgressStatus = "success"
	ProgressError    ProgressStatus = "error"
)

// ProgressRecord reports indexing progress at file-level granularity.
type ProgressRecord struct {
	Desc     string         `json:"desc"`
	Status   ProgressStatus `json:"status"`
	Progress float64        `json:"progress"`
}

// PathAndCacheKey is one unit of work in an indexing batch: a file path
// paired with the cache key (digest) that identifies the version being
// processed.
type PathAndCacheKey struct {
	Path     string
	CacheKey string
}

// SearchResult is a retrieved chunk plus its ranking signals.
type SearchResult struct {
	Chunk         Chunk   `json:"chunk"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
	ExactScore    float64 `json:"exact_score"`
	Preview       string  `json:"preview"`
	LineRange     string  `json:"line_range"`
}

// RepoIndex reports the index status of a repository.
type RepoIndex struct {
	RepoPath      string         `json:"repo_path"`
	TotalFiles    int            `json:"total_files"`
	TotalChunks   int            `json:"total_chunks"`
	Languages     map[string]int `json:"languages"`
	LastIndexed   time.Time      `json:"last_indexed"`
	IndexDuration time.Duration  `json:"index_duration"`
	Status        IndexStatus    `json:"status"`
}

// IndexStatus is the current state of a background indexing job.
type IndexStatus string

const (
	IndexStatusPending   IndexStatus = "pending"
	IndexStatusRunning   IndexStatus = "running"
	IndexStatusCompleted IndexStatus = "completed"
	IndexStatusFailed    IndexStatus = "failed"
)

// IndexJob tracks a single background indexing run.
type IndexJob struct {
	ID           string      `json:"id"`
	RepoPath     string      `json:"repo_path"`
	Status       IndexStatus `json:"status"`
	Progress     float64     `json:"progress"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      time.Time   `json:"end_time,omitempty"`
	FilesTotal   int         `json:"files_total"`
	FilesIndexed int         `json:"files_indexed"`
	ChunksTotal  int         `json:"chunks_total"`
	Error        string      `json:"error,omitempty"`
}

// FileHash tracks one file's digest for incremental reindexing.
type FileHash struct {
	Path        string    `json:"path"`
	Hash        string    `json:"hash"`
	LastIndexed time.Time `json:"last_indexed"`
	ChunkCount  int       `json:"chunk_count"`
}

// FileHashCache stores all file hashes for a repository.
type FileHashCache struct {
	RepoPath  string              `json:"repo_path"`
	Hashes    map[string]FileHash `json:"hashes"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SearchQuery is a semantic search request.
type SearchQuery struct {
	Query    string `json:"query"`
	RepoPath string `json:"repo_path"`
	Limit    int    `json:"limit"`
}

// SearchResponse wraps the ranked results of a SearchQuery.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Query     string         `json:"query"`
	TotalTime int64          `json:"total_time_ms"`
}

// Language describes a supported programming language: its name, the file
// extensions routed to it, and (if any) the tree-sitter grammar backing it.
type Language struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	Grammar    string   `json:"grammar,omitempty"`
}
