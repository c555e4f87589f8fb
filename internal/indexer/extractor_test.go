package indexer

import (
	"testing"

	"github.com/deepindex/codechunk/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

func parseSource(t *testing.T, language, source string) (*sitter.Node, []byte) {
	t.Helper()
	chunker, err := NewASTChunker()
	if err != nil {
		t.Fatalf("NewASTChunker failed: %v", err)
	}
	parser, err := chunker.ParserFor(language)
	if err != nil {
		t.Fatalf("ParserFor(%s) failed: %v", language, err)
	}
	t.Cleanup(parser.Close)

	content := []byte(source)
	tree, err := chunker.Parse(parser, content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	t.Cleanup(tree.Close)

	return tree.RootNode(), content
}

func findChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func TestExtractMetadata_GoFunction(t *testing.T) {
	source := `package main

import "fmt"

func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}
`
	root, content := parseSource(t, langGo, source)

	fn := findChildOfType(root, "function_declaration")
	if fn == nil {
		t.Fatal("expected to find a function_declaration in the parsed tree")
	}

	meta := ExtractMetadata(fn, root, langGo, "greet.go", content)
	if meta == nil {
		t.Fatal("expected non-nil metadata for a function declaration")
	}
	if meta.SymbolType != models.SymbolTypeFunction {
		t.Errorf("expected function symbol type, got %q", meta.SymbolType)
	}
	if meta.SymbolName != "Greet" {
		t.Errorf("expected symbol name Greet, got %q", meta.SymbolName)
	}

	found := false
	for _, ref := range meta.ReferencesTo {
		if ref == "Sprintf" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ReferencesTo to include Sprintf, got %v", meta.ReferencesTo)
	}

	imports := extractImports(root, langGo, content)
	if len(imports) != 1 || imports[0] != "fmt" {
		t.Errorf("expected imports [fmt], got %v", imports)
	}
}

func TestExtractMetadata_PythonClassAndMethod(t *testing.T) {
	source := `import os
from collections import OrderedDict


class Widget:
    def __init__(self):
        self.name = os.getenv("NAME")

    def render(self):
        return self.name
`
	root, content := parseSource(t, langPython, source)

	classNode := findChildOfType(root, "class_definition")
	if classNode == nil {
		t.Fatal("expected to find a class_definition")
	}

	classMeta := ExtractMetadata(classNode, root, langPython, "widget.py", content)
	if classMeta == nil {
		t.Fatal("expected non-nil metadata for the class")
	}
	if classMeta.SymbolType != models.SymbolTypeClass {
		t.Errorf("expected class symbol type, got %q", classMeta.SymbolType)
	}
	if classMeta.SymbolName != "Widget" {
		t.Errorf("expected symbol name Widget, got %q", classMeta.SymbolName)
	}
	if len(classMeta.SymbolDefinitions) == 0 {
		t.Error("expected class symbol definitions to include its methods")
	}
	if _, ok := classMeta.SymbolDefinitions["render"]; !ok {
		t.Errorf("expected symbol definitions to include render, got %v", classMeta.SymbolDefinitions)
	}

	imports := extractImports(root, langPython, content)
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %v", imports)
	}
	foundOrderedDict := false
	for _, imp := range imports {
		if imp == "OrderedDict" {
			foundOrderedDict = true
		}
	}
	if !foundOrderedDict {
		t.Errorf("expected imports to include OrderedDict (the symbol imported, not the module path), got %v", imports)
	}
}

func TestExtractMetadata_PythonMethodInsideClassIsMethodNotFunction(t *testing.T) {
	source := `class Widget:
    def render(self):
        return 1
`
	root, content := parseSource(t, langPython, source)
	classNode := findChildOfType(root, "class_definition")
	if classNode == nil {
		t.Fatal("expected to find a class_definition")
	}

	body := findChildOfType(classNode, "block")
	if body == nil {
		t.Fatal("expected to find the class body block")
	}
	method := findChildOfType(body, "function_definition")
	if method == nil {
		t.Fatal("expected to find a function_definition inside the class body")
	}

	meta := ExtractMetadata(method, root, langPython, "widget.py", content)
	if meta == nil {
		t.Fatal("expected non-nil metadata for the method")
	}
	if meta.SymbolType != models.SymbolTypeMethod {
		t.Errorf("expected method symbol type for a function nested in a class, got %q", meta.SymbolType)
	}
}

func TestExtractMetadata_NilNodeReturnsNil(t *testing.T) {
	if meta := ExtractMetadata(nil, nil, langGo, "x.go", nil); meta != nil {
		t.Error("expected nil metadata for a nil node")
	}
}

func TestExtractImports_CLikeIncludes(t *testing.T) {
	source := `#include <stdio.h>
#include "local.h"

int main() { return 0; }
`
	root, content := parseSource(t, langC, source)
	imports := extractImports(root, langC, content)
	if len(imports) != 2 {
		t.Fatalf("expected 2 includes, got %v", imports)
	}
}

func TestExtractImports_RubyRequire(t *testing.T) {
	source := `require "json"
require_relative "helper"

class Thing
end
`
	root, content := parseSource(t, langRuby, source)
	imports := extractImports(root, langRuby, content)
	if len(imports) != 2 {
		t.Fatalf("expected 2 requires, got %v", imports)
	}
}

func TestExtractExports_JavaPublicClass(t *testing.T) {
	source := `public class Service {
    private void helper() {}
}
`
	root, content := parseSource(t, langJava, source)
	exports := extractExports(root, langJava, content)
	if len(exports) != 1 || exports[0] != "Service" {
		t.Errorf("expected exports [Service], got %v", exports)
	}
}

func TestExtractExports_JavaScriptExportedDeclarations(t *testing.T) {
	source := `export class Widget {}

function helper() {}
`
	root, content := parseSource(t, langJavaScript, source)
	exports := extractExports(root, langJavaScript, content)
	if len(exports) != 1 || exports[0] != "Widget" {
		t.Errorf("expected exports [Widget], got %v", exports)
	}
}
