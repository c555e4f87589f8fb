package indexer

import (
	"fmt"

	"github.com/deepindex/codechunk/internal/models"
	"github.com/deepindex/codechunk/pkg/pathutil"
)

// Resolver is the Cross-File Resolver (§4.4): a single pass over every
// chunk of one ingestion batch. It builds a SymbolMap and FileExportMap,
// then back-fills referenced_by, subclasses, dependencies and dependents.
// It is pure: it only mutates those four fields on the chunks it is given
// and never adds or removes a chunk.
type Resolver struct {
	basePath string
}

// NewResolver builds a Resolver that relativizes paths against basePath
// (empty means keep paths as given).
func NewResolver(basePath string) *Resolver {
	return &Resolver{basePath: basePath}
}

// Resolve back-fills cross-file metadata on chunks in place.
func (r *Resolver) Resolve(chunks []*models.Chunk) {
	symbolMap := make(map[string][]*models.Chunk)
	exportMap := make(map[string][]string)
	referencesIndex := make(map[string][]*models.Chunk)
	extendsIndex := make(map[string][]*models.Chunk)

	for _, c := range chunks {
		if c.Metadata == nil {
			continue
		}
		if c.Metadata.SymbolName != "" {
			symbolMap[c.Metadata.SymbolName] = append(symbolMap[c.Metadata.SymbolName], c)
		}
		if len(c.Metadata.Exports) > 0 {
			rel := pathutil.Relativize(r.basePath, c.FilePath)
			exportMap[rel] = append(exportMap[rel], c.Metadata.Exports...)
		}
		for _, name := range c.Metadata.ReferencesTo {
			referencesIndex[name] = append(referencesIndex[name], c)
		}
		if c.Metadata.Extends != "" {
			extendsIndex[c.Metadata.Extends] = append(extendsIndex[c.Metadata.Extends], c)
		}
	}

	for _, c := range chunks {
		if c.Metadata == nil {
			continue
		}
		r.backfillReferencedBy(c, referencesIndex)
		r.backfillSubclasses(c, extendsIndex)
		r.backfillDependencies(c, exportMap)
		r.backfillDependents(c, chunks)
	}
}

func (r *Resolver) backfillReferencedBy(c *models.Chunk, referencesIndex map[string][]*models.Chunk) {
	if c.Metadata.SymbolName == "" {
		return
	}
	seen := make(map[string]bool, len(c.Metadata.ReferencedBy))
	out := append([]string{}, c.Metadata.ReferencedBy...)
	for _, v := range out {
		seen[v] = true
	}
	for _, d := range referencesIndex[c.Metadata.SymbolName] {
		if d == c {
			continue
		}
		loc := fmt.Sprintf("%s:%d", pathutil.Relativize(r.basePath, d.FilePath), d.StartLine)
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}
	c.Metadata.ReferencedBy = out
}

func (r *Resolver) backfillSubclasses(c *models.Chunk, extendsIndex map[string][]*models.Chunk) {
	if c.Metadata.SymbolType != models.SymbolTypeClass || c.Metadata.SymbolName == "" {
		return
	}
	seen := make(map[string]bool, len(c.Metadata.Subclasses))
	out := append([]string{}, c.Metadata.Subclasses...)
	for _, v := range out {
		seen[v] = true
	}
	for _, d := range extendsIndex[c.Metadata.SymbolName] {
		if d == c || d.Metadata.SymbolName == "" {
			continue
		}
		if !seen[d.Metadata.SymbolName] {
			seen[d.Metadata.SymbolName] = true
			out = append(out, d.Metadata.SymbolName)
		}
	}
	c.Metadata.Subclasses = out
}

func (r *Resolver) backfillDependencies(c *models.Chunk, exportMap map[string][]string) {
	if len(c.Metadata.Imports) == 0 {
		return
	}
	seen := make(map[string]bool, len(c.Metadata.Dependencies))
	out := append([]string{}, c.Metadata.Dependencies...)
	for _, v := range out {
		seen[v] = true
	}
	for _, imported := range c.Metadata.Imports {
		for path, exports := range exportMap {
			if containsString(exports, imported) && !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	c.Metadata.Dependencies = out
}

func (r *Resolver) backfillDependents(c *models.Chunk, chunks []*models.Chunk) {
	if len(c.Metadata.Exports) == 0 {
		return
	}
	ownPath := pathutil.Relativize(r.basePath, c.FilePath)
	seen := make(map[string]bool, len(c.Metadata.Dependents))
	out := append([]string{}, c.Metadata.Dependents...)
	for _, v := range out {
		seen[v] = true
	}
	for _, d := range chunks {
		if d.Metadata == nil {
			continue
		}
		dPath := pathutil.Relativize(r.basePath, d.FilePath)
		if dPath == ownPath {
			continue
		}
		for _, imported := range d.Metadata.Imports {
			if containsString(c.Metadata.Exports, imported) && !seen[dPath] {
				seen[dPath] = true
				out = append(out, dPath)
				break
			}
		}
	}
	c.Metadata.Dependents = out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
