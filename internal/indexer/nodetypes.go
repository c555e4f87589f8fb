package indexer

import (
	"strings"

	"github.com/deepindex/codechunk/internal/models"
)

// structuralNodeTypes are node types that always produce a collapsed-summary
// chunk, in addition to recursion into their children. Defined once as
// grammar-agnostic strings: the same node type string carries the same
// meaning regardless of which tree-sitter grammar produced it.
var structuralNodeTypes = map[string]bool{
	"module":            true,
	"source_file":       true,
	"program":           true,
	"class_definition":  true,
	"class_declaration": true,
	"impl_item":         true,
}

// collapsibleNodeTypes is structuralNodeTypes plus the function/method node
// types that have a defined body-elision rule.
var collapsibleNodeTypes = map[string]bool{
	"module":              true,
	"source_file":         true,
	"program":             true,
	"class_definition":    true,
	"class_declaration":   true,
	"impl_item":           true,
	"function_definition": true,
	"function_declaration": true,
	"function_item":       true,
	"method_declaration":  true,
}

// isStructural reports whether a node type always yields a collapsed summary.
func isStructural(nodeType string) bool { return structuralNodeTypes[nodeType] }

// isCollapsible reports whether a node type has a defined collapse rule.
func isCollapsible(nodeType string) bool { return collapsibleNodeTypes[nodeType] }

// collapseKind is the dispatch result for a collapsible node type: which of
// the three collapsed-summary constructors applies.
type collapseKind int

const (
	collapseNone collapseKind = iota
	collapseRoot
	collapseClass
	collapseFunction
)

// kindOf classifies a node type into its collapse constructor.
// class_declaration has a single class mapping here; interface_declaration
// has no collapse kind of its own and gets its distinct interface entry in
// symbolTypeMapping, per DESIGN.md.
func kindOf(nodeType string) collapseKind {
	switch nodeType {
	case "module", "source_file", "program":
		return collapseRoot
	case "class_definition", "class_declaration", "impl_item":
		return collapseClass
	case "function_definition", "function_declaration", "function_item", "method_declaration":
		return collapseFunction
	default:
		return collapseNone
	}
}

// symbolTypeMapping is the fixed language-aware node-type -> symbol-kind
// table from the symbol & reference extractor design. Kept as a single
// grammar-agnostic map, same rationale as structuralNodeTypes above.
var symbolTypeMapping = map[string]models.SymbolType{
	"module":      models.SymbolTypeFile,
	"source_file": models.SymbolTypeFile,
	"program":     models.SymbolTypeFile,

	"class_definition":  models.SymbolTypeClass,
	"class_declaration": models.SymbolTypeClass,
	"impl_item":         models.SymbolTypeClass,

	"function_definition":  models.SymbolTypeFunction,
	"function_declaration": models.SymbolTypeFunction,
	"function_item":        models.SymbolTypeFunction,

	"method_declaration": models.SymbolTypeMethod,
	"method_definition":  models.SymbolTypeMethod,

	"interface_declaration": models.SymbolTypeInterface,
	"struct_item":           models.SymbolTypeStruct,
	"trait_item":            models.SymbolTypeTrait,
}

// symbolTypeFor returns the symbol kind for a node, refining the raw
// node-type mapping for languages whose grammar reuses one node type for
// both top-level functions and class methods (Python's function_definition,
// Rust's function_item nested in an impl_item). This is an enrichment of
// the literal table, not a contradiction: the table is silent on
// context-sensitivity, and without it every Python method would be
// misreported as a function.
func symbolTypeFor(nodeType string, parentTypes []string) models.SymbolType {
	st, ok := symbolTypeMapping[nodeType]
	if !ok {
		return ""
	}
	if (nodeType == "function_definition" || nodeType == "function_item") && st == models.SymbolTypeFunction {
		for _, p := range parentTypes {
			if p == "class_definition" || p == "impl_item" || p == "class_declaration" {
				return models.SymbolTypeMethod
			}
		}
	}
	return st
}

// constructorNames lists the method names treated as "first
// constructor-equivalent" for the root collapse's per-class constructor
// line. Languages without such a concept (Go, Rust structs/impls without a
// conventional constructor name) are intentionally absent; see
// SPEC_FULL.md's open-question notes.
var constructorNames = map[string]bool{
	"__init__":    true, // Python
	"constructor": true, // JavaScript/TypeScript
}

// isConstructorName reports whether name is a recognized constructor-
// equivalent method name.
func isConstructorName(name string) bool {
	return constructorNames[strings.TrimSpace(name)]
}
