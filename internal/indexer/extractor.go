package indexer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deepindex/codechunk/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

// ExtractMetadata implements the Symbol & Reference Extractor: given a
// node, its enclosing root, the file's language and path, it produces the
// ChunkMetadata for that node. It never reads other files.
func ExtractMetadata(node, root *sitter.Node, language, path string, content []byte) *models.ChunkMetadata {
	if node == nil || root == nil {
		return nil
	}

	meta := &models.ChunkMetadata{}

	meta.SymbolType = symbolTypeFor(node.Type(), nodeParentTypes(node))
	if meta.SymbolType == models.SymbolTypeFile {
		meta.SymbolName = filepath.Base(path)
	} else if meta.SymbolType != "" {
		meta.SymbolName = firstIdentifierChild(node, content)
	}

	meta.Imports = extractImports(root, language, content)
	meta.Exports = extractExports(root, language, content)
	meta.ReferencesTo = extractReferences(node, content)

	if meta.SymbolType == models.SymbolTypeClass {
		meta.Extends = extractExtends(node, content)
		meta.Implements = extractImplements(node, content)
	}

	if defs := extractSymbolDefinitions(node, content); len(defs) > 0 {
		meta.SymbolDefinitions = defs
	}

	return meta
}

// extractSymbolDefinitions maps the name of every direct-child (or
// one-level-nested, for grammars that wrap a declaration's members in a
// body/block node) function or method definition to "line:<row>".
func extractSymbolDefinitions(node *sitter.Node, content []byte) map[string]string {
	defs := make(map[string]string)
	collect := func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			t := child.Type()
			if t == "function_definition" || t == "function_declaration" || t == "function_item" ||
				t == "method_declaration" || t == "method_definition" {
				name := firstIdentifierChild(child, content)
				if name == "" {
					continue
				}
				line, _ := nodeLineRange(child)
				defs[name] = fmt.Sprintf("line:%d", line)
			}
		}
	}
	collect(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && (strings.Contains(child.Type(), "body") || child.Type() == "block") {
			collect(child)
		}
	}
	if len(defs) == 0 {
		return nil
	}
	return defs
}

// extractExtends records the first identifier-like child in the
// superclass/argument position of a class-like node.
func extractExtends(node *sitter.Node, content []byte) string {
	candidates := findChildrenByType(node, "argument_list", "class_heritage", "superclass", "base_class_clause")
	for _, c := range candidates {
		if name := findFirstIdentifierDescendant(c, content); name != "" {
			return name
		}
	}
	return ""
}

// extractImplements collects interface names from a class-like node.
func extractImplements(node *sitter.Node, content []byte) []string {
	candidates := findChildrenByType(node, "super_interfaces", "implements_clause")
	var out []string
	seen := map[string]bool{}
	for _, c := range candidates {
		for _, name := range findAllIdentifierDescendants(c, content) {
			if name != "" && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// extractReferences walks node's subtree collecting the callee of every
// call-like node and the accessed identifier of every attribute-like node,
// deduplicated into a sorted list (the specification only requires
// set-equality; sorting makes repeated calls byte-identical).
func extractReferences(node *sitter.Node, content []byte) []string {
	seen := map[string]bool{}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch {
		case callLikeNodeTypes[n.Type()]:
			if callee := firstNonArgsChildText(n, content); callee != "" {
				if name := lastIdentSegment(callee); name != "" {
					seen[name] = true
				}
			}
		case attributeLikeNodeTypes[n.Type()]:
			if name := lastIdentSegment(extractNodeText(n, content)); name != "" {
				seen[name] = true
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sortStrings(out)
	return out
}

// extractImports dispatches to the per-language import extraction rule.
// Root-level only, as specified.
func extractImports(root *sitter.Node, language string, content []byte) []string {
	switch language {
	case langPython:
		return dedupe(extractImportsPython(root, content))
	case langJavaScript, langTypeScript, langTSX:
		return dedupe(extractImportsQuotedPath(root, content, "import_statement"))
	case langGo:
		return dedupe(extractImportsQuotedPath(root, content, "import_spec"))
	case langJava:
		return dedupe(extractImportsDotted(root, content, "import_declaration"))
	case langCSharp:
		return dedupe(extractImportsDotted(root, content, "using_directive"))
	case langRust:
		return dedupe(extractImportsRust(root, content))
	case langC, langCPP:
		return dedupe(extractImportsCLike(root, content))
	case langRuby:
		return dedupe(extractImportsRuby(root, content))
	default:
		return nil
	}
}

func extractImportsPython(root *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import_statement", "import_from_statement":
			out = append(out, importedNamesAfterKeyword(child, content)...)
		}
	}
	return out
}

// importedNamesAfterKeyword returns the names following the last "import"
// keyword token in an import statement. For "import os, sys" that is the
// module names themselves; for "from a import X" it is "X" (the imported
// symbol, not the module path "a") — the form that lets dependency
// resolution match an import against the exporting file's export list.
func importedNamesAfterKeyword(node *sitter.Node, content []byte) []string {
	lastImportIdx := -1
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "import" {
			lastImportIdx = i
		}
	}
	if lastImportIdx == -1 {
		return nil
	}

	var out []string
	for i := lastImportIdx + 1; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name", "identifier":
			out = append(out, extractNodeText(child, content))
		case "aliased_import":
			if name := firstIdentifierChild(child, content); name != "" {
				out = append(out, name)
			} else if dn := firstDottedName(child); dn != nil {
				out = append(out, extractNodeText(dn, content))
			}
		}
	}
	return out
}

// firstDottedName returns the first "dotted_name" descendant of a Python
// import statement, which holds the module path text.
func firstDottedName(node *sitter.Node) *sitter.Node {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || found != nil {
			return
		}
		if n.Type() == "dotted_name" {
			found = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return found
}

func extractImportsQuotedPath(root *sitter.Node, content []byte, stmtType string) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == stmtType {
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child == nil {
					continue
				}
				t := child.Type()
				if t == "string" || t == "interpreted_string_literal" || t == "raw_string_literal" {
					out = append(out, strings.Trim(extractNodeText(child, content), "\"'`"))
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

func extractImportsDotted(root *sitter.Node, content []byte, stmtType string) []string {
	var out []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != stmtType {
			continue
		}
		text := extractNodeText(child, content)
		text = strings.TrimPrefix(text, "import")
		text = strings.TrimPrefix(text, "using")
		text = strings.TrimSuffix(strings.TrimSpace(text), ";")
		text = strings.TrimSpace(strings.TrimPrefix(text, "static"))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

func extractImportsRust(root *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != "use_declaration" {
			continue
		}
		text := extractNodeText(child, content)
		text = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "use")), ";")
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func extractImportsCLike(root *sitter.Node, content []byte) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "preproc_include" {
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child == nil {
					continue
				}
				if child.Type() == "string_literal" || child.Type() == "system_lib_string" {
					out = append(out, strings.Trim(extractNodeText(child, content), "\"<>"))
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

func extractImportsRuby(root *sitter.Node, content []byte) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call" {
			method := firstNonArgsChildText(n, content)
			if method == "require" || method == "require_relative" {
				for i := 0; i < int(n.ChildCount()); i++ {
					child := n.Child(i)
					if child != nil && (child.Type() == "argument_list") {
						for j := 0; j < int(child.ChildCount()); j++ {
							arg := child.Child(j)
							if arg != nil && arg.Type() == "string" {
								out = append(out, strings.Trim(extractNodeText(arg, content), "\"'"))
							}
						}
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

// exportableDeclarationTypes are the node types considered "top-level
// classes and functions" for languages with no explicit export keyword.
var exportableDeclarationTypes = map[string]bool{
	"class_definition":    true,
	"class_declaration":   true,
	"impl_item":           true,
	"function_definition":  true,
	"function_declaration": true,
	"function_item":        true,
}

// extractExports dispatches to the per-language export rule: explicit
// export wrappers (JS/TS), public-modifier tagging (Java), or "every
// top-level class/function" for everything else, per the specification.
// Rust's export rule is left undecided by the specification (§9 open
// questions); this module applies the same "every top-level item" default
// rather than inventing a visibility rule the spec does not describe.
func extractExports(root *sitter.Node, language string, content []byte) []string {
	switch language {
	case langJavaScript, langTypeScript, langTSX:
		return extractExportsJS(root, content)
	case langJava:
		return extractExportsJavaPublic(root, content)
	default:
		return extractExportsDefault(root, content)
	}
}

func extractExportsJS(root *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != "export_statement" {
			continue
		}
		inner := findChildrenByType(child, "class_declaration", "function_declaration")
		for _, decl := range inner {
			if name := firstIdentifierChild(decl, content); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func extractExportsJavaPublic(root *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != "class_declaration" {
			continue
		}
		mods := findChildrenByType(child, "modifiers")
		isPublic := false
		for _, m := range mods {
			if strings.Contains(extractNodeText(m, content), "public") {
				isPublic = true
			}
		}
		if isPublic {
			if name := firstIdentifierChild(child, content); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func extractExportsDefault(root *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child != nil && exportableDeclarationTypes[child.Type()] {
			if name := firstIdentifierChild(child, content); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
